package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const meetingKey = "meeting"

// Meeting maps every speaker of one meeting to its intervals in document
// order.
type Meeting struct {
	ID       string
	Speakers map[string][]Interval
}

// NewMeeting returns an empty meeting.
func NewMeeting(id string) *Meeting {
	return &Meeting{ID: id, Speakers: make(map[string][]Interval)}
}

// Empty reports whether the meeting has no speakers.
func (m *Meeting) Empty() bool {
	return m == nil || len(m.Speakers) == 0
}

// SpeakerIDs returns the speaker codes in sorted order.
func (m *Meeting) SpeakerIDs() []string {
	ids := make([]string, 0, len(m.Speakers))
	for id := range m.Speakers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SpeechMs returns the annotated speech of one speaker in milliseconds.
func (m *Meeting) SpeechMs(speaker string) float64 {
	var total float64
	for _, iv := range m.Speakers[speaker] {
		total += iv.DurationMs()
	}
	return total
}

// MarshalJSON writes speakers in sorted order followed by the meeting ID.
func (m *Meeting) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, id := range m.SpeakerIDs() {
		if id == meetingKey {
			return nil, fmt.Errorf("speaker code %q collides with the meeting key", id)
		}
		key, _ := json.Marshal(id)
		intervals := m.Speakers[id]
		if intervals == nil {
			intervals = []Interval{}
		}
		val, err := json.Marshal(intervals)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		buf.WriteByte(',')
	}
	id, _ := json.Marshal(m.ID)
	buf.WriteString(`"` + meetingKey + `":`)
	buf.Write(id)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode renders the persisted form of the meeting record: the MarshalJSON
// document indented by two spaces. json.Marshal compacts marshaler output,
// so writers must go through Encode.
func (m *Meeting) Encode() ([]byte, error) {
	compact, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// UnmarshalJSON reads the record written by MarshalJSON. Intervals are
// validated on the way in.
func (m *Meeting) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	idRaw, ok := raw[meetingKey]
	if !ok {
		return fmt.Errorf("meeting record has no %q key", meetingKey)
	}
	var id string
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return fmt.Errorf("meeting id: %w", err)
	}
	delete(raw, meetingKey)

	speakers := make(map[string][]Interval, len(raw))
	for speaker, v := range raw {
		var intervals []Interval
		if err := json.Unmarshal(v, &intervals); err != nil {
			return fmt.Errorf("speaker %s: %w", speaker, err)
		}
		for i, iv := range intervals {
			if err := iv.Validate(); err != nil {
				return fmt.Errorf("speaker %s interval %d: %w", speaker, i, err)
			}
		}
		speakers[speaker] = intervals
	}
	m.ID = id
	m.Speakers = speakers
	return nil
}
