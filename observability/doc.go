// Package observability wires OpenTelemetry tracing and metrics into the
// corpus pipeline.
//
// Export is off unless observability.enabled is set; the global no-op
// providers then make every span and instrument free.
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, "amiprep", version.GetShortVersion(), "production")
//	defer shutdown(ctx)
//
//	metrics, _ := observability.NewMetrics(observability.Meter("amiprep"))
//	op := observability.NewStageOperation(runID, "slice", metrics)
//	ctx, span := op.Start(ctx)
//	defer op.End(ctx, span, err)
package observability
