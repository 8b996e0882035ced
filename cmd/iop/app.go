package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/logger"
	"github.com/kbukum/iopipe/metrics"
	"github.com/kbukum/iopipe/observability"
	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/storage"
	"github.com/kbukum/iopipe/version"

	_ "github.com/kbukum/iopipe/storage/local"
	_ "github.com/kbukum/iopipe/storage/redis"
	_ "github.com/kbukum/iopipe/storage/s3"
)

const instrumentationName = "github.com/kbukum/iopipe/cmd/iop"

const shutdownTimeout = 5 * time.Second

// app carries what every command shares: configuration, logging, telemetry,
// the stage recorders and the lazily opened storage backend.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg  *Config
	log  *logger.Logger
	tel  *observability.Telemetry
	runs *observability.Metrics
	prom *metrics.Prometheus
	rec  metrics.Recorder

	store storage.Storage
}

// setup loads the configuration and starts telemetry.
func (a *app) setup(ctx context.Context, configFile, envFile string) error {
	cfg, err := loadConfig(configFile, envFile)
	if err != nil {
		return err
	}
	if err := cfg.resolveSecrets(); err != nil {
		return err
	}
	a.cfg = cfg
	base := logger.NewWithWriter(&cfg.Logging, cfg.Name, a.stderr)
	logger.SetGlobalLogger(base)
	a.log = base.WithComponent("iop")

	tel, err := observability.Setup(ctx, observability.Service{
		Name:        cfg.Name,
		Version:     version.Get().Short(),
		Environment: cfg.Environment,
	}, cfg.Telemetry)
	if err != nil {
		return err
	}
	a.tel = tel

	meter := observability.Meter(instrumentationName)
	if a.runs, err = observability.NewMetrics(meter); err != nil {
		return err
	}
	otelRec, err := metrics.NewOTel(ctx, meter)
	if err != nil {
		return err
	}
	a.prom = metrics.NewPrometheus()
	a.rec = metrics.Multi{a.prom, otelRec}
	return nil
}

// storage opens the configured backend on first use.
func (a *app) storage() (storage.Storage, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := storage.New(a.cfg.Storage.Config, a.cfg.Storage.providerConfig(), a.log)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// execute runs the chain ending at sink as one traced, measured operation.
// written is read after the run for the byte count.
func (a *app) execute(ctx context.Context, op string, sink pipeline.Sink, written *metrics.Counter, attrs ...attribute.KeyValue) error {
	attrs = append(attrs, attribute.String(observability.AttrOperation, op))
	ctx, span := observability.StartSpan(ctx, observability.SpanCommand, trace.WithAttributes(attrs...))
	defer span.End()

	opts := []pipeline.ExecOption{pipeline.WithName("iop." + op), pipeline.WithLogger(a.log)}
	for _, kv := range attrs {
		opts = append(opts, pipeline.WithAttribute(string(kv.Key), kv.Value.Emit()))
	}

	start := time.Now()
	err := pipeline.Execute(ctx, sink, opts...)
	var n int64
	if written != nil {
		n = written.Bytes()
		observability.SetSpanAttribute(ctx, "iop.bytes", n)
	}
	status := "ok"
	if err != nil {
		status = "error"
		code := string(apperrors.CodeOf(err))
		if code == "" {
			code = "UNKNOWN"
		}
		a.runs.RecordError(ctx, op, code)
		observability.SetSpanError(ctx, err)
	}
	a.runs.RecordRun(ctx, op, status, time.Since(start), n)
	return err
}

// close pushes stage counters, flushes telemetry and closes the storage
// backend. Export failures are logged, not returned.
func (a *app) close() error {
	if a.cfg == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if gw := a.cfg.Metrics.Pushgateway; gw != "" {
		if err := a.prom.Push(ctx, gw, a.cfg.Metrics.Job); err != nil {
			a.log.Warn("metrics push failed", logger.Fields(logger.FieldEndpoint, gw, logger.FieldError, err.Error()))
		}
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		a.log.Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
	}

	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
