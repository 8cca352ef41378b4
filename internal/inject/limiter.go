package inject

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter applies token-bucket backpressure to one session's inbound
// traffic: max tokens refilling over window, one token per inbound frame.
// A denied frame is dropped by the caller, never queued.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter builds a limiter allowing max frames per window. A
// non-positive max or window disables limiting.
func NewLimiter(max int, window time.Duration) *Limiter {
	if max <= 0 || window <= 0 {
		return &Limiter{bucket: rate.NewLimiter(rate.Inf, 0)}
	}
	interval := window / time.Duration(max)
	return &Limiter{bucket: rate.NewLimiter(rate.Every(interval), max)}
}

// Allow consumes one token if available.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}
