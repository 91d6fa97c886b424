package corpus

import (
	"path"
	"strings"
)

// Channels are the audio file letters of a meeting, in concatenation order.
var Channels = []string{"a", "b", "c", "d"}

// Layout maps artifacts to storage keys. Keys always use forward slashes.
type Layout struct {
	Segments   string `yaml:"segments" mapstructure:"segments"`
	Audio      string `yaml:"audio" mapstructure:"audio"`
	Meetings   string `yaml:"meetings" mapstructure:"meetings"`
	Utterances string `yaml:"utterances" mapstructure:"utterances"`
	Markers    string `yaml:"markers" mapstructure:"markers"`
	Dataset    string `yaml:"dataset" mapstructure:"dataset"`
}

// DefaultLayout returns the layout of the reference dataset directory.
func DefaultLayout() Layout {
	l := Layout{}
	l.ApplyDefaults()
	return l
}

// ApplyDefaults fills empty keys.
func (l *Layout) ApplyDefaults() {
	if l.Segments == "" {
		l.Segments = "metadata/segments"
	}
	if l.Audio == "" {
		l.Audio = "audio"
	}
	if l.Meetings == "" {
		l.Meetings = "meetings"
	}
	if l.Utterances == "" {
		l.Utterances = "utterances"
	}
	if l.Markers == "" {
		l.Markers = "markers"
	}
	if l.Dataset == "" {
		l.Dataset = "dataset.npz"
	}
}

// SegmentsPrefix is the listing prefix of every annotation record of a
// meeting, across all of its parts.
func (l Layout) SegmentsPrefix(meetingID string) string {
	return dir(l.Segments) + meetingID
}

// AudioKey is the raw audio file of one channel of a meeting.
func (l Layout) AudioKey(meetingID, channel string) string {
	return path.Join(l.Audio, meetingID+channel+".wav")
}

// MeetingKey is the merged annotation record of a meeting.
func (l Layout) MeetingKey(meetingID string) string {
	return path.Join(l.Meetings, meetingID+".json")
}

// MeetingsPrefix lists every merged annotation record.
func (l Layout) MeetingsPrefix() string {
	return dir(l.Meetings)
}

// MeetingIDFromKey extracts the meeting ID from a MeetingKey.
func (l Layout) MeetingIDFromKey(key string) (string, bool) {
	name, ok := strings.CutPrefix(key, dir(l.Meetings))
	if !ok || strings.Contains(name, "/") {
		return "", false
	}
	id, ok := strings.CutSuffix(name, ".json")
	return id, ok && id != ""
}

// UtterancesPrefix lists every per-speaker stream.
func (l Layout) UtterancesPrefix() string {
	return dir(l.Utterances)
}

// UtteranceKey is the concatenated stream of one speaker of a meeting.
func (l Layout) UtteranceKey(meetingID, speakerID string) string {
	return path.Join(l.Utterances, meetingID, speakerID+".wav")
}

// ParseUtteranceKey splits an UtteranceKey into meeting and speaker.
func (l Layout) ParseUtteranceKey(key string) (meetingID, speakerID string, ok bool) {
	rest, ok := strings.CutPrefix(key, dir(l.Utterances))
	if !ok {
		return "", "", false
	}
	meetingID, file, ok := strings.Cut(rest, "/")
	if !ok || meetingID == "" || strings.Contains(file, "/") {
		return "", "", false
	}
	speakerID, ok = strings.CutSuffix(file, ".wav")
	if !ok || speakerID == "" {
		return "", "", false
	}
	return meetingID, speakerID, true
}

// MarkerKey is the completion marker of a pipeline stage.
func (l Layout) MarkerKey(stage string) string {
	return path.Join(l.Markers, stage+".json")
}

// DatasetKey is the final tensor container.
func (l Layout) DatasetKey() string {
	return l.Dataset
}

func dir(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
