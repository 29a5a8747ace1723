// Package ratelimit tracks the Zendesk per-account rate limit reported in
// response headers and, when enabled, coordinates throttling across splits
// that share a subdomain.
//
// Zendesk reports X-Rate-Limit (requests allowed per minute) and
// X-Rate-Limit-Remaining on every response, and answers 429 with a
// Retry-After header once the budget is spent.
package ratelimit

import (
	"time"
)

// Response headers read by the tracker.
const (
	HeaderLimit      = "X-Rate-Limit"
	HeaderRemaining  = "X-Rate-Limit-Remaining"
	HeaderRetryAfter = "Retry-After"
)

// WarningPercent is the share of the budget below which requests are slowed down.
const WarningPercent = 10

// State is the last observed rate-limit state of one subdomain.
type State struct {
	// Limit is the per-minute budget from X-Rate-Limit.
	Limit int `json:"limit"`

	// Remaining is the unspent budget from X-Rate-Limit-Remaining.
	Remaining int `json:"remaining"`

	// PausedUntil is set after a 429 while throttling is shared.
	PausedUntil time.Time `json:"paused_until"`

	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsPaused reports whether requests must wait for a previous 429 to clear.
func (s *State) IsPaused(now time.Time) bool {
	return now.Before(s.PausedUntil)
}

// TimeUntilResume returns how long a paused subdomain stays paused, or 0.
func (s *State) TimeUntilResume(now time.Time) time.Duration {
	d := s.PausedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// NeedsThrottling returns true when less than WarningPercent of the budget is left.
func (s *State) NeedsThrottling() bool {
	if s.Limit <= 0 {
		return false
	}
	return s.Remaining*100 < s.Limit*WarningPercent
}
