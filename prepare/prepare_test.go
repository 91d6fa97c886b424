package prepare

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/amiprep/audio"
	apperrors "github.com/kbukum/amiprep/errors"
	"github.com/kbukum/amiprep/features"
	"github.com/kbukum/amiprep/logger"
	"github.com/kbukum/amiprep/storage/testutil"
)

const rate = 16000

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", io.Discard)
}

func testConfig(meetings ...string) *Config {
	cfg := &Config{}
	cfg.Corpus.Meetings = meetings
	cfg.ApplyDefaults()
	return cfg
}

func segments(part, speaker string, bounds ...[2]float64) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "<?xml version=\"1.0\" encoding=\"ISO-8859-1\" standalone=\"yes\"?>\n")
	fmt.Fprintf(&b, "<nite:root nite:id=\"%s.%s.segs\" xmlns:nite=\"http://nite.sourceforge.net/\">\n", part, speaker)
	for i, bd := range bounds {
		fmt.Fprintf(&b, "  <segment nite:id=\"%s.segment.%d\" transcriber_start=\"%g\" transcriber_end=\"%g\"/>\n", part, i, bd[0], bd[1])
	}
	b.WriteString("</nite:root>\n")
	return []byte(b.String())
}

// meetingAudio returns seconds of 16-bit audio with a different tone on
// every channel.
func meetingAudio(t *testing.T, seconds float64, channels int) []byte {
	t.Helper()
	frames := int(seconds * rate)
	samples := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			freq := 200 + 150*float64(c)
			samples[i*channels+c] = int(8000 * math.Sin(2*math.Pi*freq*float64(i)/rate))
		}
	}
	data, err := audio.EncodeBytes(audio.Clip{
		Format:  audio.Format{SampleRate: rate, Channels: channels, BitDepth: 16},
		Samples: samples,
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// seedMeeting stores one 10 s four-channel recording and four speakers with
// a 3 s interval each.
func seedMeeting(t *testing.T, store *testutil.Store, id string, speakers ...string) {
	t.Helper()
	store.Put("audio/"+id+"a.wav", meetingAudio(t, 10, 4))
	for i, s := range speakers {
		start := float64(i) * 2
		store.Put(fmt.Sprintf("metadata/segments/%sa.%s.segments.xml", id, s), segments(id+"a", s, [2]float64{start, start + 3}))
	}
}

type npyEntry struct {
	shape []int
	data  []float64
}

func readDataset(t *testing.T, data []byte) map[string]npyEntry {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open dataset: %v", err)
	}
	out := map[string]npyEntry{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		raw, _ := io.ReadAll(rc)
		rc.Close()
		start, hlen := 10, int(binary.LittleEndian.Uint16(raw[8:10]))
		if raw[6] > 1 {
			start, hlen = 12, int(binary.LittleEndian.Uint32(raw[8:12]))
		}
		header := strings.ReplaceAll(string(raw[start:start+hlen]), " ", "")
		i := strings.Index(header, "'shape':(")
		var a, b, c int
		if _, err := fmt.Sscanf(header[i:], "'shape':(%d,%d,%d)", &a, &b, &c); err != nil {
			t.Fatalf("parse header %q: %v", header, err)
		}
		body := raw[start+hlen:]
		vals := make([]float64, len(body)/8)
		for k := range vals {
			vals[k] = math.Float64frombits(binary.LittleEndian.Uint64(body[k*8:]))
		}
		out[strings.TrimSuffix(f.Name, ".npy")] = npyEntry{shape: []int{a, b, c}, data: vals}
	}
	return out
}

func TestRunEndToEnd(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "A", "B", "C", "D")
	cfg := testConfig("ES2002")

	report, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(report.Ran, Stages) {
		t.Errorf("ran %v, want %v", report.Ran, Stages)
	}
	if report.Meetings != 1 || report.Streams != 4 || report.Groups != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	data, ok := store.Get("dataset.npz")
	if !ok {
		t.Fatal("dataset.npz was not written")
	}
	entries := readDataset(t, data)
	if len(entries) != 1 {
		t.Fatalf("expected one tensor, got %d", len(entries))
	}
	want := []int{4, features.FrameCount(3*rate, rate), 40}
	if got := entries["0"].shape; !reflect.DeepEqual(got, want) {
		t.Errorf("tensor shape = %v, want %v", got, want)
	}

	for _, s := range []string{"A", "B", "C", "D"} {
		if _, ok := store.Get("utterances/ES2002/" + s + ".wav"); !ok {
			t.Errorf("missing utterance for speaker %s", s)
		}
	}
	for _, stage := range Stages {
		if _, ok := store.Get("markers/" + stage + ".json"); !ok {
			t.Errorf("missing marker for %s", stage)
		}
	}
}

func TestMeetingRecordLayout(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "B", "A")
	cfg := testConfig("ES2002")
	cfg.Pipeline.Stages = []string{StageAnnotations}

	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data, ok := store.Get("meetings/ES2002.json")
	if !ok {
		t.Fatal("meeting record missing")
	}
	doc := string(data)
	if !strings.HasPrefix(doc, "{\n  \"A\": [") {
		t.Errorf("expected speaker A first, got %q", doc[:20])
	}
	if !strings.HasSuffix(doc, "\"meeting\": \"ES2002\"\n}") {
		t.Errorf("expected trailing meeting key, got %q", doc[len(doc)-30:])
	}
	if strings.Index(doc, `"A"`) > strings.Index(doc, `"B"`) {
		t.Error("speakers are not sorted")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "A", "B", "C", "D")
	seedMeeting(t, store, "IS1000", "A", "B", "C", "D")
	cfg := testConfig("ES2002", "IS1000")

	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	first, _ := store.Get("dataset.npz")

	report, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(report.Skipped, Stages) || len(report.Ran) != 0 {
		t.Errorf("second run should skip every stage, got ran=%v skipped=%v", report.Ran, report.Skipped)
	}

	cfg.Pipeline.Force = true
	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	second, _ := store.Get("dataset.npz")
	if !bytes.Equal(first, second) {
		t.Error("forced rerun produced a different dataset")
	}
}

func TestRunShapeMismatchWritesNothing(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "A", "B", "C")
	cfg := testConfig("ES2002")

	_, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCodeShapeMismatch) {
		t.Fatalf("expected SHAPE_MISMATCH, got %v", err)
	}
	if _, ok := store.Get("dataset.npz"); ok {
		t.Error("dataset must not be written on shape mismatch")
	}
	if _, ok := store.Get("markers/dataset.json"); ok {
		t.Error("failed stage must not leave a marker")
	}
}

func TestRunShapeMismatchRemovesPreviousDataset(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "A", "B", "C", "D")
	cfg := testConfig("ES2002")
	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("dataset.npz"); !ok {
		t.Fatal("first run should write the dataset")
	}

	seedMeeting(t, store, "IS1000", "A", "B", "C")
	cfg = testConfig("ES2002", "IS1000")
	cfg.Pipeline.Force = true
	_, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCodeShapeMismatch) {
		t.Fatalf("expected SHAPE_MISMATCH, got %v", err)
	}
	if _, ok := store.Get("dataset.npz"); ok {
		t.Error("dataset from the previous run survived a failed rebuild")
	}
}

func TestRunEarlierStageRemovesDataset(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "A", "B", "C", "D")
	cfg := testConfig("ES2002")
	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	cfg.Pipeline.Stages = []string{StageAnnotations}
	cfg.Pipeline.Force = true
	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("dataset.npz"); ok {
		t.Error("dataset should be dropped once its inputs are rebuilt")
	}
}

func TestRunSkipsBadMeetings(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "A", "B", "C", "D")
	store.Put("metadata/segments/ES2003a.A.segments.xml", []byte(`<root><segment transcriber_start="oops" transcriber_end="1"/></root>`))
	seedMeeting(t, store, "IB4001", "A", "B", "C", "D")
	cfg := testConfig("ES2002", "ES2003", "IB4001", "IN1001")

	report, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := store.Get("meetings/ES2003.json"); ok {
		t.Error("malformed meeting must not be persisted")
	}
	if _, ok := store.Get("meetings/IN1001.json"); ok {
		t.Error("meeting without speakers must not be persisted")
	}
	if _, ok := store.Get("meetings/IB4001.json"); !ok {
		t.Error("IB meetings are still merged")
	}
	for _, k := range store.Keys() {
		if strings.HasPrefix(k, "utterances/IB4001/") {
			t.Errorf("IB meeting was sliced: %s", k)
		}
	}
	if report.Meetings != 2 || report.Groups != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestRunMissingAudioSkipsMeeting(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "A", "B", "C", "D")
	for _, s := range []string{"A", "B", "C", "D"} {
		store.Put("metadata/segments/ES2004a."+s+".segments.xml", segments("ES2004a", s, [2]float64{0, 1}))
	}
	cfg := testConfig("ES2002", "ES2004")

	report, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Streams != 4 || report.Groups != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestRunInvalidatesLaterMarkers(t *testing.T) {
	store := testutil.NewStore()
	seedMeeting(t, store, "ES2002", "A", "B", "C", "D")
	cfg := testConfig("ES2002")
	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	cfg.Pipeline.Stages = []string{StageAnnotations}
	cfg.Pipeline.Force = true
	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("markers/annotations.json"); !ok {
		t.Error("annotations marker missing")
	}
	for _, stage := range []string{StageUtterances, StageDataset} {
		if _, ok := store.Get("markers/" + stage + ".json"); ok {
			t.Errorf("marker for %s should be cleared after annotations reran", stage)
		}
	}
}

func TestRunIgnoresCorruptMarkers(t *testing.T) {
	tests := []struct {
		name   string
		marker string
	}{
		{"not json", "{"},
		{"missing run id", `{"stage":"annotations","items":1}`},
		{"bad run id", `{"stage":"annotations","run_id":"abc","items":1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := testutil.NewStore()
			seedMeeting(t, store, "ES2002", "A", "B", "C", "D")
			store.Put("markers/annotations.json", []byte(tc.marker))
			cfg := testConfig("ES2002")
			cfg.Pipeline.Stages = []string{StageAnnotations}

			report, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(report.Ran) != 1 || len(report.Skipped) != 0 {
				t.Errorf("expected annotations to rerun, got %+v", report)
			}
		})
	}
}

func TestRunSplit(t *testing.T) {
	store := testutil.NewStore()
	for _, id := range []string{"ES2002", "ES2003", "ES2004"} {
		seedMeeting(t, store, id, "A", "B", "C", "D")
	}
	cfg := testConfig("ES2002", "ES2003", "ES2004")
	cfg.Dataset.Split.Enabled = true
	cfg.Dataset.Grouping = "meeting"

	if _, err := NewRunner(cfg, store, WithLogger(quietLogger())).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, _ := store.Get("dataset.npz")
	var keys []string
	for k := range readDataset(t, data) {
		keys = append(keys, k)
	}
	for _, want := range []string{"dev/0", "dev/1", "eval/0"} {
		found := false
		for _, k := range keys {
			found = found || k == want
		}
		if !found {
			t.Errorf("missing key %s in %v", want, keys)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown stage", func(c *Config) { c.Pipeline.Stages = []string{"download"} }, true},
		{"bad grouping", func(c *Config) { c.Dataset.Grouping = "random" }, true},
		{"zero speakers", func(c *Config) { c.Dataset.Speakers = -1 }, true},
		{"bad ratio", func(c *Config) {
			c.Dataset.Split.Enabled = true
			c.Dataset.Split.DevRatio = 1.5
		}, true},
		{"blank meeting", func(c *Config) { c.Corpus.Meetings = []string{" "} }, true},
		{"lowercase meeting id", func(c *Config) { c.Corpus.Meetings = []string{"es2002"} }, true},
		{"no retry attempts", func(c *Config) { c.Retry.MaxAttempts = -1 }, true},
		{"bad provider", func(c *Config) { c.Storage.Provider = "ftp" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := testConfig()
	if len(cfg.Corpus.Meetings) != 62 {
		t.Errorf("expected full catalogue, got %d meetings", len(cfg.Corpus.Meetings))
	}
	if !reflect.DeepEqual(cfg.Corpus.SkipSlicingPrefixes, []string{"IB"}) {
		t.Errorf("skip prefixes = %v", cfg.Corpus.SkipSlicingPrefixes)
	}
	if cfg.Dataset.Speakers != 4 || cfg.Dataset.Grouping != "sorted" || cfg.Dataset.Split.DevRatio != 0.7 {
		t.Errorf("dataset defaults = %+v", cfg.Dataset)
	}
	if cfg.Features.MelBins != 40 || cfg.Features.Shuffle {
		t.Errorf("feature defaults = %+v", cfg.Features)
	}
	if cfg.Layout.Dataset != "dataset.npz" {
		t.Errorf("layout defaults = %+v", cfg.Layout)
	}
}

func TestConfigKeepsSeed(t *testing.T) {
	for _, seed := range []uint64{0, 1, 42} {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			cfg := &Config{Features: FeaturesConfig{Shuffle: true, Seed: seed}}
			cfg.ApplyDefaults()
			if cfg.Features.Seed != seed {
				t.Errorf("Seed = %d after defaults, want %d", cfg.Features.Seed, seed)
			}
		})
	}
}
