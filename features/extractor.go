package features

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/kbukum/amiprep/audio"
	"github.com/kbukum/amiprep/corpus"
	"github.com/kbukum/amiprep/logger"
	"github.com/kbukum/amiprep/pipeline"
	"github.com/kbukum/amiprep/storage"
)

// Tagged is a feature matrix with the stream it came from.
type Tagged struct {
	MeetingID string
	SpeakerID string
	Matrix    *mat.Dense
}

// Rows returns the frame count of the matrix.
func (t Tagged) Rows() int {
	if t.Matrix == nil {
		return 0
	}
	r, _ := t.Matrix.Dims()
	return r
}

// Extractor computes a matrix for every persisted speaker stream.
type Extractor struct {
	store     storage.Storage
	layout    corpus.Layout
	transform Transform
	workers   int
	log       *logger.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers decodes and transforms up to n streams at once. Output order
// does not depend on n.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

// NewExtractor creates an Extractor using transform.
func NewExtractor(store storage.Storage, layout corpus.Layout, transform Transform, opts ...Option) *Extractor {
	e := &Extractor{store: store, layout: layout, transform: transform, workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get("features")
	}
	return e
}

// ExtractAll returns one Tagged per stream in utterance key order. Streams
// too short for a single frame are skipped with a warning.
func (e *Extractor) ExtractAll(ctx context.Context) ([]Tagged, error) {
	utterances, err := corpus.Utterances(ctx, e.store, e.layout)
	if err != nil {
		return nil, err
	}

	p := pipeline.Ordered(pipeline.FromSlice(utterances), e.workers, e.extract)
	p = pipeline.Filter(p, func(t Tagged) bool { return t.Matrix != nil })
	p = pipeline.Tap(p, func(_ context.Context, t Tagged) error {
		e.log.Info("extracted features", logger.Fields(
			logger.FieldMeeting, t.MeetingID,
			logger.FieldSpeaker, t.SpeakerID,
			"frames", t.Rows(),
		))
		return nil
	})
	return pipeline.Collect(ctx, p)
}

func (e *Extractor) extract(ctx context.Context, u corpus.Utterance) (Tagged, error) {
	tagged := Tagged{MeetingID: u.MeetingID, SpeakerID: u.SpeakerID}
	data, err := storage.ReadAll(ctx, e.store, u.Key)
	if err != nil {
		return tagged, err
	}
	clip, err := audio.DecodeBytes(data)
	if err != nil {
		return tagged, fmt.Errorf("features: decode %s: %w", u.Key, err)
	}

	m, err := e.transform.Apply(clip.Mono(), clip.Format.SampleRate)
	if errors.Is(err, ErrTooShort) {
		e.log.Warn("stream too short for features", logger.Fields(
			logger.FieldMeeting, u.MeetingID,
			logger.FieldSpeaker, u.SpeakerID,
			"duration_ms", clip.DurationMs(),
		))
		return tagged, nil
	}
	if err != nil {
		return tagged, fmt.Errorf("features: %s %s: %w", e.transform.Name(), u.Key, err)
	}
	tagged.Matrix = m
	return tagged, nil
}

// Shuffle permutes items in place with a PCG source seeded by seed. The
// same seed always yields the same order.
func Shuffle(items []Tagged, seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}
