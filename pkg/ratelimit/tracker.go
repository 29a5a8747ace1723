package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zendesk_rate_limit_remaining",
		Help: "Requests remaining in the current Zendesk rate limit window by subdomain",
	}, []string{"subdomain"})

	rateLimitPausesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_rate_limit_pauses_total",
		Help: "Total number of shared pauses started after a 429 by subdomain",
	}, []string{"subdomain"})

	rateLimitThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_rate_limit_throttles_total",
		Help: "Total number of requests delayed by the tracker by subdomain",
	}, []string{"subdomain"})
)

// DefaultThrottleDelay is the pause applied when the remaining budget is low.
const DefaultThrottleDelay = 1 * time.Second

// Tracker records rate-limit headers per subdomain. When shared, it also
// makes every split of a subdomain wait out a 429 seen by any one of them and
// slows requests down when the budget runs low. An unshared tracker only
// records state, so splits stay fully independent.
type Tracker struct {
	store         Store
	shared        bool
	throttleDelay time.Duration
	logger        zerolog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewTracker creates a tracker backed by store.
func NewTracker(store Store, shared bool, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:         store,
		shared:        shared,
		throttleDelay: DefaultThrottleDelay,
		logger:        logger,
		now:           time.Now,
		sleep:         Sleep,
	}
}

// Shared reports whether the tracker coordinates splits.
func (t *Tracker) Shared() bool {
	return t.shared
}

// State returns the stored state for subdomain, or nil if none was recorded.
func (t *Tracker) State(ctx context.Context, subdomain string) (*State, error) {
	return t.store.Get(ctx, subdomain)
}

// UpdateFromHeaders records X-Rate-Limit and X-Rate-Limit-Remaining.
// Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, subdomain string, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}
	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	limit := 0
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	if err := t.store.SetHeaders(ctx, subdomain, limit, remain, t.now()); err != nil {
		return err
	}

	rateLimitRemaining.WithLabelValues(subdomain).Set(float64(remain))

	if (&State{Limit: limit, Remaining: remain}).NeedsThrottling() {
		t.logger.Warn().
			Str("subdomain", subdomain).
			Int("remaining", remain).
			Int("limit", limit).
			Msg("Zendesk rate limit budget low")
	} else {
		t.logger.Debug().
			Str("subdomain", subdomain).
			Int("remaining", remain).
			Int("limit", limit).
			Msg("Zendesk rate limit state updated")
	}
	return nil
}

// Pause makes every split of subdomain wait d before its next request.
// An existing longer pause is kept. It is a no-op on an unshared tracker.
func (t *Tracker) Pause(ctx context.Context, subdomain string, d time.Duration) error {
	if !t.shared || d <= 0 {
		return nil
	}

	extended, err := t.store.ExtendPause(ctx, subdomain, t.now().Add(d))
	if err != nil {
		return err
	}
	if !extended {
		return nil
	}

	rateLimitPausesTotal.WithLabelValues(subdomain).Inc()
	t.logger.Warn().
		Str("subdomain", subdomain).
		Dur("pause", d).
		Msg("Pausing subdomain after throttling")
	return nil
}

// Wait blocks while subdomain is paused and adds the throttle delay when the
// budget is low. It returns immediately on an unshared tracker.
func (t *Tracker) Wait(ctx context.Context, subdomain string) error {
	if !t.shared {
		return nil
	}

	state, err := t.store.Get(ctx, subdomain)
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}
	if state == nil {
		return nil
	}

	var wait time.Duration
	if now := t.now(); state.IsPaused(now) {
		wait = state.TimeUntilResume(now)
	} else if state.NeedsThrottling() {
		wait = t.throttleDelay
	}
	if wait <= 0 {
		return nil
	}

	rateLimitThrottlesTotal.WithLabelValues(subdomain).Inc()
	t.logger.Debug().
		Str("subdomain", subdomain).
		Dur("wait", wait).
		Msg("Waiting for rate limit")
	return t.sleep(ctx, wait)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
