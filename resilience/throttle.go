package resilience

import (
	"context"

	"github.com/kbukum/iopipe/pipeline"
)

// Throttle is a pass-through transform that limits the byte rate of the
// blocks flowing through it. Each block waits for len(block) tokens before
// it is forwarded.
type Throttle struct {
	pipeline.FeedBase
	pipeline.SinkBase
	ctx     context.Context
	limiter *RateLimiter
}

// NewThrottle returns a Throttle whose Rate is in bytes per second. Waits
// end early with ctx's error.
func NewThrottle(ctx context.Context, config RateLimiterConfig) *Throttle {
	return &Throttle{ctx: ctx, limiter: NewRateLimiter(config)}
}

// Limiter exposes the underlying bucket.
func (t *Throttle) Limiter() *RateLimiter { return t.limiter }

// Process forwards b once the limiter admits it.
func (t *Throttle) Process(b pipeline.Block) error {
	if b == nil {
		return t.Finish()
	}
	if err := t.limiter.WaitN(t.ctx, len(b)); err != nil {
		return err
	}
	return t.Emit(b)
}
