// Package observability wires OpenTelemetry tracing and metrics export for
// iopipe binaries.
//
//	tel, err := observability.Setup(ctx, svc, cfg.Telemetry)
//	defer tel.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanCommand)
//	defer span.End()
//
// Run-level instruments:
//
//	m, err := observability.NewMetrics(observability.Meter("iop"))
//	m.RecordRun(ctx, "copy", "ok", elapsed, n)
package observability
