package corpus

import (
	"context"
	"path"

	"github.com/kbukum/amiprep/annotation"
	"github.com/kbukum/amiprep/storage"
)

// AnnotationRecords lists the annotation records of a meeting in key
// order. Every part of the meeting matches, e.g. ES2002a.A and ES2002b.A
// both belong to ES2002.
func AnnotationRecords(ctx context.Context, store storage.Storage, layout Layout, meetingID string) ([]annotation.Record, error) {
	files, err := store.List(ctx, layout.SegmentsPrefix(meetingID))
	if err != nil {
		return nil, err
	}
	records := make([]annotation.Record, 0, len(files))
	for _, f := range files {
		records = append(records, annotation.Record{
			Name: path.Base(f.Path),
			Open: storage.Opener(ctx, store, f.Path),
		})
	}
	return records, nil
}

// MergedMeetings lists the IDs of every merged annotation record in key
// order.
func MergedMeetings(ctx context.Context, store storage.Storage, layout Layout) ([]string, error) {
	files, err := store.List(ctx, layout.MeetingsPrefix())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		if id, ok := layout.MeetingIDFromKey(f.Path); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Utterance identifies one persisted per-speaker stream.
type Utterance struct {
	MeetingID string
	SpeakerID string
	Key       string
}

// Utterances lists every persisted per-speaker stream in key order.
func Utterances(ctx context.Context, store storage.Storage, layout Layout) ([]Utterance, error) {
	files, err := store.List(ctx, layout.UtterancesPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]Utterance, 0, len(files))
	for _, f := range files {
		meeting, speaker, ok := layout.ParseUtteranceKey(f.Path)
		if !ok {
			continue
		}
		out = append(out, Utterance{MeetingID: meeting, SpeakerID: speaker, Key: f.Path})
	}
	return out, nil
}
