package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/iopipe/logger"
)

const tracerName = "github.com/kbukum/iopipe/pipeline"

type execOptions struct {
	name  string
	log   *logger.Logger
	attrs map[string]any
}

// ExecOption configures Execute.
type ExecOption func(*execOptions)

// WithName names the run in logs and as the span name.
func WithName(name string) ExecOption {
	return func(o *execOptions) { o.name = name }
}

// WithLogger sets the logger used for run events.
func WithLogger(l *logger.Logger) ExecOption {
	return func(o *execOptions) { o.log = l }
}

// WithAttribute adds a key/value to the run's log lines and span.
func WithAttribute(key string, value any) ExecOption {
	return func(o *execOptions) {
		if o.attrs == nil {
			o.attrs = make(map[string]any)
		}
		o.attrs[key] = value
	}
}

// Execute runs the chain ending at sink. The run is tagged with a fresh id,
// traced as one span and logged on completion. The error returned by
// sink.Run is returned unchanged.
func Execute(ctx context.Context, sink Sink, opts ...ExecOption) error {
	o := execOptions{name: "pipeline.run"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.WithComponent("pipeline")
	}

	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	spanAttrs := []attribute.KeyValue{attribute.String("iop.run_id", runID)}
	for k, v := range o.attrs {
		spanAttrs = append(spanAttrs, attribute.String(k, fmt.Sprint(v)))
	}
	_, span := otel.Tracer(tracerName).Start(ctx, o.name, trace.WithAttributes(spanAttrs...))
	defer span.End()

	log := o.log.WithContext(ctx).WithFields(o.attrs)
	log.Debug("run started")
	start := time.Now()

	err := sink.Run()
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("run failed", logger.MergeWithDuration(logger.ErrorFields(o.name, err), elapsed))
		return err
	}
	span.SetStatus(codes.Ok, "")
	log.Info("run completed", logger.DurationFields(o.name, elapsed))
	return nil
}
