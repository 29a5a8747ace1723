package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// NewPacer returns a limiter spacing requests to at most perMinute per
// minute, bursting up to one request. It returns nil when perMinute is 0,
// meaning no client-side pacing.
func NewPacer(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
