package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries bounds retries after network errors and 5xx responses.
	// A request is attempted at most MaxRetries+1 times for these classes.
	MaxRetries int

	// MaxRateLimitRetries bounds retries after 429 responses. It is a
	// separate budget: throttling does not consume MaxRetries.
	MaxRateLimitRetries int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:          20,
		MaxRateLimitRetries: 10,
		InitialBackoff:      1 * time.Second,
		MaxBackoff:          60 * time.Second,
		BackoffMultiplier:   2.0,
	}
}

// RetryEvent describes a failed attempt that is about to be retried.
type RetryEvent struct {
	Attempt    int
	ErrorClass ErrorClass
	StatusCode int
	Backoff    time.Duration
	Err        error
}

// attemptFunc performs one attempt of a request.
type attemptFunc func(ctx context.Context, attempt int) (*Response, error)

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable
// class, exhausts the budget of its class, or ctx is done. Network and server
// failures back off exponentially with jitter; 429 responses wait for the
// server's Retry-After when present.
func (c *Client) retryWithBackoff(ctx context.Context, req Request, fn attemptFunc) (*Response, error) {
	cfg := c.config.Retry
	backoff := cfg.InitialBackoff
	var failures, throttles int
	var honored time.Duration

	for attempt := 1; ; attempt++ {
		resp, err := fn(ctx, attempt)
		if err == nil {
			resp.Attempts = attempt
			resp.Throttles = throttles
			resp.RetryAfter = honored
			if attempt > 1 {
				c.logger.Info().
					Str("subdomain", req.Subdomain).
					Str("endpoint", req.Endpoint).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}

		errorClass := Classify(err)
		if !Retryable(errorClass) {
			return nil, err
		}

		var wait time.Duration
		if errorClass == ErrorClassRateLimit {
			if throttles >= cfg.MaxRateLimitRetries {
				return nil, c.exhausted(req, errorClass, attempt, err)
			}
			throttles++
			wait = retryAfter(err)
			if wait > 0 {
				honored = wait
			} else {
				wait = jitter(backoff)
			}
			if c.tracker != nil {
				if perr := c.tracker.Pause(ctx, req.Subdomain, wait); perr != nil {
					c.logger.Warn().Err(perr).Str("subdomain", req.Subdomain).Msg("Failed to share throttle pause")
				}
			}
		} else {
			if failures >= cfg.MaxRetries {
				return nil, c.exhausted(req, errorClass, attempt, err)
			}
			failures++
			wait = jitter(backoff)
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		c.logger.Warn().
			Err(err).
			Str("subdomain", req.Subdomain).
			Str("endpoint", req.Endpoint).
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		if req.OnRetry != nil {
			req.OnRetry(RetryEvent{
				Attempt:    attempt,
				ErrorClass: errorClass,
				StatusCode: statusOf(err),
				Backoff:    wait,
				Err:        err,
			})
		}

		if serr := c.sleep(ctx, wait); serr != nil {
			c.logger.Warn().
				Str("subdomain", req.Subdomain).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, serr)
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
}

func (c *Client) exhausted(req Request, errorClass ErrorClass, attempts int, err error) error {
	retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	c.logger.Error().
		Str("subdomain", req.Subdomain).
		Str("endpoint", req.Endpoint).
		Str("error_class", string(errorClass)).
		Int("attempts", attempts).
		Msg("Retry attempts exhausted")
	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err)
}

// jitter spreads d by ±20% to prevent thundering herd.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

func retryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// MaxRetryAfter caps the delay taken from a Retry-After header.
const MaxRetryAfter = 24 * time.Hour

// ParseRetryAfter reads a Retry-After value given either in seconds or as an
// HTTP date. It returns 0 when the value is absent or unparsable, and at most
// MaxRetryAfter.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return 0
		}
		if secs >= MaxRetryAfter.Seconds() {
			return MaxRetryAfter
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return min(d, MaxRetryAfter)
		}
	}
	return 0
}
