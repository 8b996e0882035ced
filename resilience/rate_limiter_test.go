package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"
)

// fakeClock drives a limiter without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rate float64, burst int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate, Burst: burst})
	rl.now = clock.now
	rl.lastRefill = clock.now()
	return rl, clock
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl, _ := newTestLimiter(10, 5)
	if !rl.AllowN(5) {
		t.Fatal("burst should be allowed")
	}
	if rl.AllowN(1) {
		t.Error("request over burst should be rejected")
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl, clock := newTestLimiter(100, 1)
	if !rl.AllowN(1) {
		t.Fatal("first request should be allowed")
	}
	if rl.AllowN(1) {
		t.Fatal("second request should be rejected")
	}
	clock.advance(10 * time.Millisecond)
	if !rl.AllowN(1) {
		t.Error("request after refill should be allowed")
	}
}

func TestRateLimiter_RefillCapsAtBurst(t *testing.T) {
	rl, clock := newTestLimiter(10, 5)
	clock.advance(time.Hour)
	if got := rl.Tokens(); got != 5 {
		t.Errorf("tokens = %v, want 5", got)
	}
}

func TestRateLimiter_ReserveBeyondBurst(t *testing.T) {
	rl, _ := newTestLimiter(1000, 100)
	if got := rl.reserveN(300); got != 200*time.Millisecond {
		t.Errorf("wait = %v, want 200ms", got)
	}
	if got := rl.Tokens(); got != -200 {
		t.Errorf("tokens = %v, want -200", got)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl.Rate() != 1 || rl.Burst() != 1 {
		t.Errorf("rate=%v burst=%d, want 1 and 1", rl.Rate(), rl.Burst())
	}
	rl = NewRateLimiter(RateLimiterConfig{Rate: 4096})
	if rl.Burst() != 4096 {
		t.Errorf("burst = %d, want one second of rate", rl.Burst())
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 100, Burst: 1})
	rl.AllowN(1)

	start := time.Now()
	if err := rl.WaitN(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("waited %v, want about 10ms", elapsed)
	}
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1})
	rl.AllowN(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.WaitN(ctx, 1); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
