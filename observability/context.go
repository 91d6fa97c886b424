package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/amiprep/errors"
)

// StageOperation tracks one execution of a pipeline stage.
type StageOperation struct {
	RunID     string
	Stage     string
	StartTime time.Time
	Metrics   *Metrics
}

// NewStageOperation creates a stage operation. A nil metrics skips recording.
func NewStageOperation(runID, stage string, metrics *Metrics) *StageOperation {
	return &StageOperation{
		RunID:     runID,
		Stage:     stage,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type stageOperationKey struct{}

// WithStageOperation stores op in the context.
func WithStageOperation(ctx context.Context, op *StageOperation) context.Context {
	return context.WithValue(ctx, stageOperationKey{}, op)
}

// StageOperationFromContext retrieves the StageOperation from context, or nil.
func StageOperationFromContext(ctx context.Context) *StageOperation {
	if op, ok := ctx.Value(stageOperationKey{}).(*StageOperation); ok {
		return op
	}
	return nil
}

// Start opens a span named "stage.<stage>" and stores op in the returned context.
func (op *StageOperation) Start(ctx context.Context) (context.Context, trace.Span) {
	op.StartTime = time.Now()
	ctx, span := StartSpan(ctx, "stage."+op.Stage)
	span.SetAttributes(
		attribute.String(AttrRunID, op.RunID),
		attribute.String(AttrStage, op.Stage),
	)
	return WithStageOperation(ctx, op), span
}

// End closes the span and records the stage outcome.
func (op *StageOperation) End(ctx context.Context, span trace.Span, err error) {
	duration := time.Since(op.StartTime)
	status := "ok"

	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
		code := string(apperrors.ErrCodeInternal)
		if appErr, ok := apperrors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		span.SetAttributes(attribute.String(AttrErrorCode, code))
		if op.Metrics != nil {
			op.Metrics.RecordError(ctx, code, op.Stage)
		}
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if op.Metrics != nil {
		op.Metrics.RecordStage(ctx, op.Stage, status, duration)
	}
}

// Duration returns the elapsed time since the stage started.
func (op *StageOperation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
