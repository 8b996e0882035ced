// Package metrics counts the traffic through a pipeline stage and reports
// it to Prometheus or OpenTelemetry.
package metrics

import (
	"github.com/kbukum/iopipe/pipeline"
)

// Recorder receives per-block observations.
type Recorder interface {
	// Observe records one data block of n bytes passing stage.
	Observe(stage string, n int)
}

// Counter is a pass-through transform counting data blocks and bytes.
// Blocks are forwarded unchanged.
type Counter struct {
	pipeline.FeedBase
	pipeline.SinkBase
	stage  string
	rec    Recorder
	blocks int64
	bytes  int64
}

// NewCounter returns a counter reporting to rec under stage. A nil rec
// only keeps the local totals.
func NewCounter(stage string, rec Recorder) *Counter {
	return &Counter{stage: stage, rec: rec}
}

// Process counts b and forwards it.
func (c *Counter) Process(b pipeline.Block) error {
	if b == nil {
		return c.Finish()
	}
	if len(b) == 0 {
		return nil
	}
	c.blocks++
	c.bytes += int64(len(b))
	if c.rec != nil {
		c.rec.Observe(c.stage, len(b))
	}
	return c.Forward(b)
}

// Stage returns the stage label.
func (c *Counter) Stage() string { return c.stage }

// Blocks returns the number of data blocks seen.
func (c *Counter) Blocks() int64 { return c.blocks }

// Bytes returns the number of bytes seen.
func (c *Counter) Bytes() int64 { return c.bytes }

// Multi fans one observation out to several recorders.
type Multi []Recorder

// Observe calls every recorder in order.
func (m Multi) Observe(stage string, n int) {
	for _, r := range m {
		r.Observe(stage, n)
	}
}
