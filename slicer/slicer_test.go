package slicer

import (
	"context"
	"io"
	"testing"

	"github.com/kbukum/amiprep/annotation"
	"github.com/kbukum/amiprep/audio"
	"github.com/kbukum/amiprep/corpus"
	"github.com/kbukum/amiprep/logger"
	"github.com/kbukum/amiprep/storage/testutil"
)

const rate = 16000

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", io.Discard)
}

// tone returns a clip of the given length whose samples encode the channel
// letter so concatenation order is observable.
func tone(seconds float64, channels, value int) audio.Clip {
	frames := int(seconds * rate)
	samples := make([]int, frames*channels)
	for i := range samples {
		samples[i] = value
	}
	return audio.Clip{Format: audio.Format{SampleRate: rate, Channels: channels, BitDepth: 16}, Samples: samples}
}

func putClip(t *testing.T, store *testutil.Store, key string, c audio.Clip) {
	t.Helper()
	data, err := audio.EncodeBytes(c)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	store.Put(key, data)
}

func TestSliceDurationLaw(t *testing.T) {
	store := testutil.NewStore()
	layout := corpus.DefaultLayout()
	putClip(t, store, layout.AudioKey("ES2002", "a"), tone(10, 1, 100))

	m := &annotation.Meeting{ID: "ES2002", Speakers: map[string][]annotation.Interval{
		"A": {{StartMs: 0, EndMs: 2000}, {StartMs: 5000, EndMs: 7000}},
	}}
	streams, err := New(store, layout, quietLogger()).Slice(context.Background(), m)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	if got := streams["A"].DurationMs(); got != 4000 {
		t.Errorf("stream duration = %v ms, want 4000", got)
	}
}

func TestSliceConcatenatesChannelsInOrder(t *testing.T) {
	store := testutil.NewStore()
	layout := corpus.DefaultLayout()
	// Upload out of order; the slicer must still visit a before c.
	putClip(t, store, layout.AudioKey("IS1000", "c"), tone(2, 1, 3))
	putClip(t, store, layout.AudioKey("IS1000", "a"), tone(2, 1, 1))

	m := &annotation.Meeting{ID: "IS1000", Speakers: map[string][]annotation.Interval{
		"B": {{StartMs: 0, EndMs: 500}},
	}}
	streams, err := New(store, layout, quietLogger()).Slice(context.Background(), m)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	b := streams["B"]
	if b.DurationMs() != 1000 {
		t.Fatalf("duration = %v, want 1000 (two channels x 500 ms)", b.DurationMs())
	}
	half := len(b.Samples) / 2
	if b.Samples[0] != 1 || b.Samples[half] != 3 {
		t.Errorf("expected channel a then c, got %d then %d", b.Samples[0], b.Samples[half])
	}
}

func TestSliceSkipsBadChannels(t *testing.T) {
	store := testutil.NewStore()
	layout := corpus.DefaultLayout()
	putClip(t, store, layout.AudioKey("TS3003", "a"), tone(1, 1, 1))
	store.Put(layout.AudioKey("TS3003", "b"), []byte("garbage"))
	putClip(t, store, layout.AudioKey("TS3003", "c"), tone(1, 2, 9)) // stereo, incompatible
	putClip(t, store, layout.AudioKey("TS3003", "d"), tone(1, 1, 4))

	m := &annotation.Meeting{ID: "TS3003", Speakers: map[string][]annotation.Interval{
		"A": {{StartMs: 0, EndMs: 100}},
	}}
	streams, err := New(store, layout, quietLogger()).Slice(context.Background(), m)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	a := streams["A"]
	if a.DurationMs() != 200 {
		t.Errorf("duration = %v, want 200 (channels a and d only)", a.DurationMs())
	}
	for _, s := range a.Samples {
		if s == 9 {
			t.Fatal("samples from the incompatible channel leaked into the stream")
		}
	}
}

func TestSliceDropsEmptySpeakers(t *testing.T) {
	store := testutil.NewStore()
	layout := corpus.DefaultLayout()
	putClip(t, store, layout.AudioKey("ES2003", "a"), tone(1, 1, 1))

	m := &annotation.Meeting{ID: "ES2003", Speakers: map[string][]annotation.Interval{
		"A": {{StartMs: 0, EndMs: 100}},
		"B": {},
		"C": {{StartMs: 5000, EndMs: 6000}}, // beyond the end of the audio
		"D": {{StartMs: 300, EndMs: 300}},
	}}
	streams, err := New(store, layout, quietLogger()).Slice(context.Background(), m)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("expected only speaker A, got %d streams", len(streams))
	}
	if _, ok := streams["A"]; !ok {
		t.Error("speaker A missing")
	}
}

func TestSliceNoAudio(t *testing.T) {
	m := &annotation.Meeting{ID: "ES2004", Speakers: map[string][]annotation.Interval{
		"A": {{StartMs: 0, EndMs: 100}},
	}}
	streams, err := New(testutil.NewStore(), corpus.DefaultLayout(), quietLogger()).Slice(context.Background(), m)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	if len(streams) != 0 {
		t.Errorf("expected no streams, got %d", len(streams))
	}
}

func TestSliceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &annotation.Meeting{ID: "ES2005", Speakers: map[string][]annotation.Interval{"A": nil}}
	if _, err := New(testutil.NewStore(), corpus.DefaultLayout(), quietLogger()).Slice(ctx, m); err == nil {
		t.Error("expected context error")
	}
}

func TestSave(t *testing.T) {
	store := testutil.NewStore()
	layout := corpus.DefaultLayout()
	s := New(store, layout, quietLogger())
	streams := map[string]audio.Clip{"B": tone(0.5, 1, 2), "A": tone(0.25, 1, 1)}
	if err := s.Save(context.Background(), "ES2002", streams); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	keys := store.Keys()
	if len(keys) != 2 || keys[0] != "utterances/ES2002/A.wav" || keys[1] != "utterances/ES2002/B.wav" {
		t.Fatalf("unexpected keys %v", keys)
	}
	data, _ := store.Get("utterances/ES2002/B.wav")
	clip, err := audio.DecodeBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if clip.DurationMs() != 500 {
		t.Errorf("saved duration = %v", clip.DurationMs())
	}
}
