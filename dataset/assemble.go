package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	apperrors "github.com/kbukum/amiprep/errors"
	"github.com/kbukum/amiprep/features"
)

// Grouping selects how matrices are partitioned into tensors.
type Grouping string

const (
	// GroupSorted takes consecutive runs of the length-sorted matrices.
	GroupSorted Grouping = "sorted"
	// GroupByMeeting forms one group per meeting.
	GroupByMeeting Grouping = "meeting"
)

// Split partitions groups into dev and eval sets.
type Split struct {
	Enabled  bool    `yaml:"enabled" mapstructure:"enabled"`
	DevRatio float64 `yaml:"dev_ratio" mapstructure:"dev_ratio" validate:"gt=0,lt=1"`
}

// Options controls Assemble.
type Options struct {
	Speakers int      `yaml:"speakers" mapstructure:"speakers" validate:"gt=0"`
	Grouping Grouping `yaml:"grouping" mapstructure:"grouping" validate:"oneof=sorted meeting"`
	Split    Split    `yaml:"split" mapstructure:"split"`
}

// ApplyDefaults fills unset options.
func (o *Options) ApplyDefaults() {
	if o.Speakers == 0 {
		o.Speakers = 4
	}
	if o.Grouping == "" {
		o.Grouping = GroupSorted
	}
	if o.Split.DevRatio == 0 {
		o.Split.DevRatio = 0.7
	}
}

// Assemble builds tensors from tagged matrices. It fails with
// SHAPE_MISMATCH when the matrices cannot fill whole groups or disagree on
// feature dimension; in that case nothing is returned.
func Assemble(tagged []features.Tagged, opts Options) ([]Tensor, error) {
	opts.ApplyDefaults()
	n := opts.Speakers
	if len(tagged)%n != 0 {
		return nil, apperrors.ShapeMismatch(len(tagged), n)
	}
	if err := checkDims(tagged); err != nil {
		return nil, err
	}

	var groups [][]features.Tagged
	switch opts.Grouping {
	case GroupSorted:
		groups = chunk(sortByRows(tagged), n)
	case GroupByMeeting:
		var err error
		if groups, err = byMeeting(tagged, n); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.InvalidInput("grouping", fmt.Sprintf("unknown grouping %q", opts.Grouping))
	}

	keys := Keys(len(groups), opts.Split)
	tensors := make([]Tensor, len(groups))
	for i, g := range groups {
		tensors[i] = stack(keys[i], g)
	}
	return tensors, nil
}

// Keys returns the dataset key of each of count groups: "0", "1", ... or,
// with the split enabled, "dev/0".. for the first floor(count*ratio) groups
// and "eval/0".. for the rest.
func Keys(count int, split Split) []string {
	keys := make([]string, count)
	if !split.Enabled {
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	dev := int(math.Floor(float64(count) * split.DevRatio))
	for i := range keys {
		if i < dev {
			keys[i] = "dev/" + strconv.Itoa(i)
		} else {
			keys[i] = "eval/" + strconv.Itoa(i-dev)
		}
	}
	return keys
}

func checkDims(tagged []features.Tagged) error {
	dim := -1
	for _, t := range tagged {
		if t.Matrix == nil {
			return apperrors.New(apperrors.ErrCodeShapeMismatch,
				fmt.Sprintf("speaker %s of meeting %s has no feature matrix", t.SpeakerID, t.MeetingID))
		}
		_, c := t.Matrix.Dims()
		if dim == -1 {
			dim = c
		}
		if c != dim {
			return apperrors.New(apperrors.ErrCodeShapeMismatch,
				fmt.Sprintf("speaker %s of meeting %s has feature dimension %d, expected %d", t.SpeakerID, t.MeetingID, c, dim)).
				WithDetails(map[string]any{"meeting": t.MeetingID, "speaker": t.SpeakerID})
		}
	}
	return nil
}

// sortByRows returns a copy sorted by row count, longest first. Ties keep
// their collection order.
func sortByRows(tagged []features.Tagged) []features.Tagged {
	sorted := append([]features.Tagged(nil), tagged...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rows() > sorted[j].Rows()
	})
	return sorted
}

func chunk(items []features.Tagged, n int) [][]features.Tagged {
	groups := make([][]features.Tagged, 0, len(items)/n)
	for i := 0; i < len(items); i += n {
		groups = append(groups, items[i:i+n])
	}
	return groups
}

// byMeeting groups matrices by meeting in order of first appearance.
func byMeeting(tagged []features.Tagged, n int) ([][]features.Tagged, error) {
	index := make(map[string]int)
	var groups [][]features.Tagged
	for _, t := range tagged {
		i, ok := index[t.MeetingID]
		if !ok {
			i = len(groups)
			index[t.MeetingID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], t)
	}
	for i, g := range groups {
		if len(g) != n {
			return nil, apperrors.New(apperrors.ErrCodeShapeMismatch,
				fmt.Sprintf("meeting %s has %d feature matrices, expected %d", g[0].MeetingID, len(g), n)).
				WithDetails(map[string]any{"meeting": g[0].MeetingID, "total": len(g), "speakers": n})
		}
		groups[i] = sortByRows(g)
	}
	return groups, nil
}

// stack copies the first min_rows rows of every matrix into its slot.
func stack(key string, group []features.Tagged) Tensor {
	minRows := group[0].Rows()
	for _, t := range group[1:] {
		minRows = min(minRows, t.Rows())
	}
	_, dim := group[0].Matrix.Dims()

	out := NewTensor(key, len(group), minRows, dim)
	for s, t := range group {
		out.Meetings[s] = t.MeetingID
		for f := 0; f < minRows; f++ {
			row := t.Matrix.RawRowView(f)
			copy(out.Data[(s*minRows+f)*dim:], row[:dim])
		}
	}
	return out
}
