package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTel records stage traffic on OpenTelemetry counters.
type OTel struct {
	ctx    context.Context
	blocks metric.Int64Counter
	bytes  metric.Int64Counter
}

// NewOTel creates the stage counters on meter. ctx is passed to every
// measurement.
func NewOTel(ctx context.Context, meter metric.Meter) (*OTel, error) {
	blocks, err := meter.Int64Counter("iop.stage.blocks",
		metric.WithDescription("Data blocks passing a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iop.stage.blocks counter: %w", err)
	}
	bytes, err := meter.Int64Counter("iop.stage.bytes",
		metric.WithDescription("Bytes passing a stage"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iop.stage.bytes counter: %w", err)
	}
	return &OTel{ctx: ctx, blocks: blocks, bytes: bytes}, nil
}

// Observe implements Recorder.
func (o *OTel) Observe(stage string, n int) {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	o.blocks.Add(o.ctx, 1, attrs)
	o.bytes.Add(o.ctx, int64(n), attrs)
}
