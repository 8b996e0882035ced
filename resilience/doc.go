// Package resilience holds the retry and rate limiting policies used by the
// network adapters and the throttle transform.
//
//	conn, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (net.Conn, error) {
//	    return d.DialContext(ctx, "tcp", addr)
//	})
//
//	limit := resilience.NewThrottle(ctx, resilience.RateLimiterConfig{Rate: 1 << 20})
//	pipeline.Chain(src, limit, dst)
package resilience
