package annotation

import (
	"io"

	apperrors "github.com/kbukum/amiprep/errors"
	"github.com/kbukum/amiprep/logger"
)

// Record is one per-speaker annotation document. Open is only called for
// records that contribute to the merged meeting.
type Record struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// Merger builds Meetings from annotation records.
type Merger struct {
	log *logger.Logger
}

// NewMerger creates a Merger. A nil logger falls back to the registered
// "annotation" component logger.
func NewMerger(log *logger.Logger) *Merger {
	if log == nil {
		log = logger.Get("annotation")
	}
	return &Merger{log: log}
}

// Merge combines the records of one meeting in the order given. The first
// record of each speaker wins; later records for that speaker are skipped.
//
// Segments with start after end are dropped with a warning. Any other
// record that cannot be parsed fails the whole meeting with
// MALFORMED_ANNOTATION and no partial result. Errors opening a record are
// returned unchanged so that storage failures stay distinguishable.
func (mg *Merger) Merge(meetingID string, records []Record) (*Meeting, error) {
	m := NewMeeting(meetingID)
	for _, rec := range records {
		speaker, err := SpeakerFromName(rec.Name)
		if err != nil {
			return nil, apperrors.MalformedAnnotation(meetingID, rec.Name, err.Error())
		}
		if _, seen := m.Speakers[speaker]; seen {
			mg.log.Debug("duplicate speaker record ignored", logger.Fields(
				logger.FieldMeeting, meetingID,
				logger.FieldSpeaker, speaker,
				logger.FieldPath, rec.Name,
			))
			continue
		}

		intervals, inverted, err := readRecord(rec)
		if err != nil {
			if apperrors.IsAppError(err) {
				return nil, err
			}
			return nil, apperrors.MalformedAnnotation(meetingID, rec.Name, err.Error()).WithCause(err)
		}
		if inverted > 0 {
			mg.log.Warn("dropped segments with start after end", logger.Fields(
				logger.FieldMeeting, meetingID,
				logger.FieldSpeaker, speaker,
				logger.FieldPath, rec.Name,
				"dropped", inverted,
			))
		}
		m.Speakers[speaker] = intervals
	}
	return m, nil
}

func readRecord(rec Record) ([]Interval, int, error) {
	rc, err := rec.Open()
	if err != nil {
		return nil, 0, ensureAppError(err)
	}
	defer rc.Close()
	return ParseSegments(rc)
}

// ensureAppError keeps open failures out of the malformed-record path.
func ensureAppError(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(err)
}
