package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/kbukum/amiprep/errors"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected default endpoint, got %q", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected sample rate 1.0, got %v", cfg.SampleRate)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected 15s interval, got %v", cfg.Interval)
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, "amiprep", "dev", "test")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned %v", err)
	}
}

func TestNewMetrics(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordStage(ctx, "merge", "ok", 100*time.Millisecond)
	metrics.RecordMeeting(ctx, "slice", "skipped")
	metrics.RecordSpeech(ctx, 12.5)
	metrics.RecordFrames(ctx, 300)
	metrics.RecordGroups(ctx, 2)
	metrics.RecordError(ctx, "SHAPE_MISMATCH", "dataset")
}

func TestMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	metrics.RecordFrames(ctx, 298)
	metrics.RecordFrames(ctx, 2)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "amiprep.features.frames" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 {
				t.Fatalf("unexpected data %T", m.Data)
			}
			if sum.DataPoints[0].Value != 300 {
				t.Errorf("frames = %d, want 300", sum.DataPoints[0].Value)
			}
			found = true
		}
	}
	if !found {
		t.Error("features.frames metric not exported")
	}
}

func TestStageOperation_Success(t *testing.T) {
	exporter := installRecorder(t)

	op := NewStageOperation("run-1", "merge", nil)
	ctx, span := op.Start(context.Background())
	if StageOperationFromContext(ctx) != op {
		t.Error("expected operation in context")
	}
	op.End(ctx, span, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "stage.merge" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if v, ok := attrValue(spans[0].Attributes, AttrStatus); !ok || v.AsString() != "ok" {
		t.Errorf("expected status=ok, got %v", v)
	}
	if v, ok := attrValue(spans[0].Attributes, AttrRunID); !ok || v.AsString() != "run-1" {
		t.Errorf("expected run id attribute, got %v", v)
	}
}

func TestStageOperation_ErrorCode(t *testing.T) {
	exporter := installRecorder(t)
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	op := NewStageOperation("run-2", "dataset", metrics)
	ctx, span := op.Start(context.Background())
	op.End(ctx, span, fmt.Errorf("assemble: %w", apperrors.ShapeMismatch(7, 4)))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if v, ok := attrValue(spans[0].Attributes, AttrErrorCode); !ok || v.AsString() != "SHAPE_MISMATCH" {
		t.Errorf("expected error.code=SHAPE_MISMATCH, got %v", v)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}
}

func TestStageOperationFromContext_NotSet(t *testing.T) {
	if StageOperationFromContext(context.Background()) != nil {
		t.Error("expected nil without an operation")
	}
}

func TestSetSpanAttribute(t *testing.T) {
	exporter := installRecorder(t)

	ctx, span := StartSpan(context.Background(), "slice.meeting")
	SetSpanAttribute(ctx, AttrMeetingID, "ES2002")
	SetSpanAttribute(ctx, "speakers", 4)
	SetSpanAttribute(ctx, "samples", int64(48000))
	SetSpanAttribute(ctx, "seconds", 3.0)
	SetSpanAttribute(ctx, "skipped", false)
	SetSpanAttribute(ctx, "channels", []string{"a", "b"})
	SetSpanAttribute(ctx, "ignored", struct{}{})
	SetSpanError(ctx, fmt.Errorf("channel c unreadable"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if v, ok := attrValue(spans[0].Attributes, AttrMeetingID); !ok || v.AsString() != "ES2002" {
		t.Errorf("expected meeting attribute, got %v", v)
	}
	if _, ok := attrValue(spans[0].Attributes, "ignored"); ok {
		t.Error("unsupported types should be dropped")
	}
}

func TestSpanHelpersWithoutSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "key", "value")
	SetSpanError(ctx, fmt.Errorf("no span"))
	if SpanFromContext(ctx) == nil {
		t.Fatal("expected non-nil noop span")
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("amiprep", "1.2.3", "test")
	if err != nil {
		t.Fatalf("newResource failed: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if kv.Key == "service.name" && kv.Value.AsString() == "amiprep" {
			found = true
		}
	}
	if !found {
		t.Error("service.name attribute missing")
	}
}

func TestInitTracerAndMeter(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName: "amiprep",
		Endpoint:    "localhost:4318",
		Insecure:    true,
		SampleRate:  0.5,
	})
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	defer tp.Shutdown(ctx)

	mp, err := InitMeter(ctx, &MeterConfig{
		ServiceName: "amiprep",
		Endpoint:    "localhost:4318",
		Insecure:    true,
		Interval:    time.Hour,
	})
	if err != nil {
		t.Fatalf("InitMeter failed: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_ = mp.Shutdown(shutdownCtx)
}
