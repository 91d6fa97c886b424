package prepare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/amiprep/annotation"
	"github.com/kbukum/amiprep/corpus"
	"github.com/kbukum/amiprep/dataset"
	apperrors "github.com/kbukum/amiprep/errors"
	"github.com/kbukum/amiprep/features"
	"github.com/kbukum/amiprep/logger"
	"github.com/kbukum/amiprep/observability"
	"github.com/kbukum/amiprep/pipeline"
	"github.com/kbukum/amiprep/slicer"
	"github.com/kbukum/amiprep/storage"
	"github.com/kbukum/amiprep/version"
)

// Stage names in execution order.
const (
	StageAnnotations = "annotations"
	StageUtterances  = "utterances"
	StageDataset     = "dataset"
)

// Stages lists every stage in execution order.
var Stages = []string{StageAnnotations, StageUtterances, StageDataset}

// Report summarises a run.
type Report struct {
	RunID    string
	Ran      []string
	Skipped  []string
	Meetings int
	Streams  int
	Groups   int
}

// Runner executes the preparation stages.
type Runner struct {
	cfg       *Config
	store     storage.Storage
	layout    corpus.Layout
	transform features.Transform
	metrics   *observability.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records stage and meeting metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTransform replaces the default log mel transform.
func WithTransform(t features.Transform) Option {
	return func(r *Runner) { r.transform = t }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a Runner over store. cfg must have defaults applied.
// Store calls are retried per cfg.Retry.
func NewRunner(cfg *Config, store storage.Storage, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		store:  storage.WithRetry(store, cfg.Retry),
		layout: cfg.Layout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.transform == nil {
		r.transform = features.NewLogMel(cfg.Features.LogMelConfig)
	}
	if r.log == nil {
		r.log = logger.Get("prepare")
	}
	return r
}

// Run executes the selected stages in order. Per-meeting failures are
// logged and skipped; any other error aborts the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	ctx = logger.ContextWithRunID(ctx, report.RunID)
	log := r.log.WithContext(ctx)

	for i, stage := range Stages {
		if !slices.Contains(r.cfg.Pipeline.Stages, stage) {
			continue
		}
		if !r.cfg.Pipeline.Force {
			marker, err := r.readMarker(ctx, stage)
			if err != nil {
				return report, err
			}
			if marker != nil {
				log.Info("stage already complete, skipping", logger.Fields(
					logger.FieldStage, stage, "completed_by", marker.RunID,
				))
				report.Skipped = append(report.Skipped, stage)
				continue
			}
		}

		// Later stages consume this one's output, so their markers are stale
		// from here on.
		for _, later := range Stages[i+1:] {
			if err := r.invalidate(ctx, later); err != nil {
				return report, err
			}
		}

		items, err := r.runStage(ctx, report, stage)
		if err != nil {
			return report, err
		}
		marker := Marker{
			Stage:       stage,
			RunID:       report.RunID,
			Version:     version.GetShortVersion(),
			CompletedAt: r.now().UTC(),
			Items:       items,
		}
		if err := r.writeMarker(ctx, marker); err != nil {
			return report, err
		}
		report.Ran = append(report.Ran, stage)
	}
	return report, nil
}

func (r *Runner) runStage(ctx context.Context, report *Report, stage string) (items int, err error) {
	op := observability.NewStageOperation(report.RunID, stage, r.metrics)
	ctx, span := op.Start(ctx)
	defer func() { op.End(ctx, span, err) }()

	log := r.log.WithContext(ctx)
	log.Info("stage started", logger.Fields(logger.FieldStage, stage))

	switch stage {
	case StageAnnotations:
		items, err = r.mergeAnnotations(ctx)
		report.Meetings = items
	case StageUtterances:
		items, err = r.sliceUtterances(ctx)
		report.Streams = items
	case StageDataset:
		items, err = r.buildDataset(ctx)
		report.Groups = items
	default:
		return 0, apperrors.InvalidInput("stage", fmt.Sprintf("unknown stage %q", stage))
	}
	if err != nil {
		log.Error("stage failed", logger.MergeWithError(logger.Fields(logger.FieldStage, stage), err))
		return items, err
	}
	log.Info("stage finished", logger.MergeWithDuration(
		logger.Fields(logger.FieldStage, stage, "items", items), op.Duration()))
	return items, nil
}

// mergeAnnotations writes one JSON record per meeting with at least one
// speaker and returns how many were written.
func (r *Runner) mergeAnnotations(ctx context.Context) (int, error) {
	if _, err := storage.DeletePrefix(ctx, r.store, r.layout.MeetingsPrefix()); err != nil {
		return 0, err
	}
	merger := annotation.NewMerger(r.log.WithComponent("annotation"))
	log := r.log.WithContext(ctx)

	merged := pipeline.Map(pipeline.FromSlice(r.cfg.Corpus.Meetings), func(ctx context.Context, id string) (*annotation.Meeting, error) {
		records, err := corpus.AnnotationRecords(ctx, r.store, r.layout, id)
		if err != nil {
			return nil, err
		}
		m, err := merger.Merge(id, records)
		if apperrors.HasCode(err, apperrors.ErrCodeMalformedAnnotation) {
			log.Warn("skipping meeting with malformed annotation", logger.MergeWithError(logger.MeetingFields(id, ""), err))
			r.recordMeeting(ctx, StageAnnotations, "malformed")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if m.Empty() {
			log.Debug("no speakers annotated", logger.MeetingFields(id, ""))
			r.recordMeeting(ctx, StageAnnotations, "empty")
			return nil, nil
		}
		return m, nil
	})
	kept := pipeline.Filter(merged, func(m *annotation.Meeting) bool { return m != nil })

	written := 0
	err := pipeline.ForEach(ctx, kept, func(ctx context.Context, m *annotation.Meeting) error {
		data, err := m.Encode()
		if err != nil {
			return apperrors.Internal(err)
		}
		if err := storage.WriteBytes(ctx, r.store, r.layout.MeetingKey(m.ID), data); err != nil {
			return err
		}
		log.Info("merged annotations", logger.Fields(logger.FieldMeeting, m.ID, "speakers", len(m.Speakers)))
		r.recordMeeting(ctx, StageAnnotations, "ok")
		written++
		return nil
	})
	return written, err
}

// sliceUtterances writes the speaker streams of every merged meeting and
// returns how many streams were written.
func (r *Runner) sliceUtterances(ctx context.Context) (int, error) {
	if _, err := storage.DeletePrefix(ctx, r.store, r.layout.UtterancesPrefix()); err != nil {
		return 0, err
	}
	ids, err := corpus.MergedMeetings(ctx, r.store, r.layout)
	if err != nil {
		return 0, err
	}
	sl := slicer.New(r.store, r.layout, r.log.WithComponent("slicer"))
	log := r.log.WithContext(ctx)
	written := 0

	for _, id := range ids {
		if corpus.HasAnyPrefix(id, r.cfg.Corpus.SkipSlicingPrefixes) {
			log.Debug("meeting excluded from slicing", logger.MeetingFields(id, ""))
			r.recordMeeting(ctx, StageUtterances, "excluded")
			continue
		}
		n, err := r.sliceMeeting(ctx, sl, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return written, ctxErr
			}
			log.Error("slicing failed, skipping meeting", logger.MergeWithError(logger.MeetingFields(id, ""), err))
			r.recordMeeting(ctx, StageUtterances, "failed")
			// Leave no partial speaker set behind for the dataset stage.
			if _, delErr := storage.DeletePrefix(ctx, r.store, r.layout.UtterancesPrefix()+id+"/"); delErr != nil {
				return written, delErr
			}
			continue
		}
		if n == 0 {
			r.recordMeeting(ctx, StageUtterances, "empty")
			continue
		}
		r.recordMeeting(ctx, StageUtterances, "ok")
		written += n
	}
	return written, nil
}

func (r *Runner) sliceMeeting(ctx context.Context, sl *slicer.Slicer, id string) (int, error) {
	ctx, span := observability.StartSpan(ctx, "meeting.slice")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrMeetingID, id)

	data, err := storage.ReadAll(ctx, r.store, r.layout.MeetingKey(id))
	if err != nil {
		return 0, err
	}
	var m annotation.Meeting
	if err := json.Unmarshal(data, &m); err != nil {
		return 0, apperrors.MalformedAnnotation(id, r.layout.MeetingKey(id), err.Error()).WithCause(err)
	}
	streams, err := sl.Slice(ctx, &m)
	if err != nil {
		return 0, err
	}
	if len(streams) == 0 {
		r.log.WithContext(ctx).Warn("no speech sliced, skipping meeting", logger.MeetingFields(id, ""))
		return 0, nil
	}
	if err := sl.Save(ctx, id, streams); err != nil {
		observability.SetSpanError(ctx, err)
		return 0, err
	}
	if r.metrics != nil {
		var secs float64
		for _, s := range streams {
			secs += s.Duration().Seconds()
		}
		r.metrics.RecordSpeech(ctx, secs)
	}
	return len(streams), nil
}

// buildDataset extracts features, assembles tensors and uploads the
// archive. Nothing is uploaded when assembly fails.
func (r *Runner) buildDataset(ctx context.Context) (int, error) {
	// An archive from an earlier run must not outlive a failed rebuild.
	if err := r.store.Delete(ctx, r.layout.DatasetKey()); err != nil {
		return 0, err
	}
	ext := features.NewExtractor(r.store, r.layout, r.transform,
		features.WithWorkers(r.cfg.Features.Workers),
		features.WithLogger(r.log.WithComponent("features")),
	)
	tagged, err := ext.ExtractAll(ctx)
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		frames := 0
		for _, t := range tagged {
			frames += t.Rows()
		}
		r.metrics.RecordFrames(ctx, frames)
	}
	if r.cfg.Features.Shuffle {
		features.Shuffle(tagged, r.cfg.Features.Seed)
	}

	tensors, err := dataset.Assemble(tagged, r.cfg.Dataset)
	if err != nil {
		return 0, err
	}
	if len(tensors) == 0 {
		r.log.WithContext(ctx).Warn("no feature matrices, writing an empty dataset")
	}

	if err := r.uploadDataset(ctx, tensors); err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.RecordGroups(ctx, len(tensors))
	}
	return len(tensors), nil
}

// uploadDataset spools the archive to a temporary file so the upload can be
// replayed on retry without holding it in memory.
func (r *Runner) uploadDataset(ctx context.Context, tensors []dataset.Tensor) error {
	f, err := os.CreateTemp("", "amiprep-*.npz")
	if err != nil {
		return apperrors.Internal(err)
	}
	defer os.Remove(f.Name()) //nolint:errcheck // temp file
	defer f.Close()           //nolint:errcheck // closed on every path

	if err := dataset.Write(f, tensors); err != nil {
		return apperrors.Internal(err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return apperrors.Internal(err)
	}
	return r.store.Upload(ctx, r.layout.DatasetKey(), f)
}

func (r *Runner) recordMeeting(ctx context.Context, stage, outcome string) {
	if r.metrics != nil {
		r.metrics.RecordMeeting(ctx, stage, outcome)
	}
}
