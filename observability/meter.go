package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/amiprep/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the pipeline's metric instruments.
type Metrics struct {
	stageTotal    metric.Int64Counter
	stageDuration metric.Float64Histogram
	meetingsTotal metric.Int64Counter
	speechSeconds metric.Float64Histogram
	featureFrames metric.Int64Counter
	datasetGroups metric.Int64Counter
	errorTotal    metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	stageTotal, err := meter.Int64Counter("amiprep.stage.total",
		metric.WithDescription("Stage executions by stage and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.total counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("amiprep.stage.duration",
		metric.WithDescription("Duration of stage executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.duration histogram: %w", err)
	}

	meetingsTotal, err := meter.Int64Counter("amiprep.meetings.total",
		metric.WithDescription("Meetings processed by stage and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating meetings.total counter: %w", err)
	}

	speechSeconds, err := meter.Float64Histogram("amiprep.speaker.speech",
		metric.WithDescription("Seconds of sliced speech per speaker"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speaker.speech histogram: %w", err)
	}

	featureFrames, err := meter.Int64Counter("amiprep.features.frames",
		metric.WithDescription("Feature frames extracted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating features.frames counter: %w", err)
	}

	datasetGroups, err := meter.Int64Counter("amiprep.dataset.groups",
		metric.WithDescription("Tensors written to the dataset"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dataset.groups counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("amiprep.error.total",
		metric.WithDescription("Errors by code and stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		meetingsTotal: meetingsTotal,
		speechSeconds: speechSeconds,
		featureFrames: featureFrames,
		datasetGroups: datasetGroups,
		errorTotal:    errorTotal,
	}, nil
}

// RecordStage records a completed stage execution.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	m.stageTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrStatus, status),
	))
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStage, stage),
	))
}

// RecordMeeting counts one meeting handled by a stage.
func (m *Metrics) RecordMeeting(ctx context.Context, stage, outcome string) {
	m.meetingsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrStatus, outcome),
	))
}

// RecordSpeech records the length of one speaker's sliced stream.
func (m *Metrics) RecordSpeech(ctx context.Context, seconds float64) {
	m.speechSeconds.Record(ctx, seconds)
}

// RecordFrames adds extracted feature frames.
func (m *Metrics) RecordFrames(ctx context.Context, frames int) {
	m.featureFrames.Add(ctx, int64(frames))
}

// RecordGroups adds tensors written to the dataset.
func (m *Metrics) RecordGroups(ctx context.Context, groups int) {
	m.datasetGroups.Add(ctx, int64(groups))
}

// RecordError records an error by code and stage.
func (m *Metrics) RecordError(ctx context.Context, code, stage string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.String(AttrStage, stage),
	))
}
