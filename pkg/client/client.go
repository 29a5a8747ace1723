// Package client provides the HTTP client for the Zendesk REST API with
// authentication, timeouts, retry/backoff, 429 handling and error
// classification.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/ratelimit"
)

// DefaultUserAgent identifies the extractor to Zendesk.
const DefaultUserAgent = "zendesk-extract/1.0"

// Client is the Zendesk API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	tracker    *ratelimit.Tracker
	pacer      *rate.Limiter
	config     Config
	logger     zerolog.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is a template with two %s verbs: subdomain, then endpoint.
	BaseURL string

	// API token authentication: Basic "{email}/token:{token}".
	AdminEmail string
	APIToken   string

	// AccessToken switches to OAuth bearer authentication.
	AccessToken string

	UserAgent string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	Retry RetryConfig

	// RequestsPerMinute paces requests client-side. 0 disables pacing.
	RequestsPerMinute int

	// Tracker records rate-limit headers. Optional.
	Tracker *ratelimit.Tracker
}

// DefaultConfig returns a safe default configuration without credentials.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://%s.zendesk.com/api/v2/%s",
		UserAgent:      DefaultUserAgent,
		ConnectTimeout: 300 * time.Second,
		ReadTimeout:    300 * time.Second,
		Retry:          DefaultRetryConfig(),
	}
}

// New creates a new Zendesk client.
func New(cfg Config) (*Client, error) {
	if strings.Count(cfg.BaseURL, "%s") != 2 {
		return nil, fmt.Errorf("base url must contain two %%s verbs")
	}
	if cfg.AccessToken == "" && (cfg.AdminEmail == "" || cfg.APIToken == "") {
		return nil, fmt.Errorf("admin email and api token are required without an access token")
	}
	if cfg.ConnectTimeout <= 0 || cfg.ReadTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}
	if cfg.Retry.MaxRetries < 0 || cfg.Retry.MaxRateLimitRetries < 0 {
		return nil, fmt.Errorf("retry budgets must not be negative")
	}
	if cfg.Retry.InitialBackoff <= 0 {
		return nil, fmt.Errorf("initial backoff must be positive")
	}
	if cfg.Retry.BackoffMultiplier < 1 {
		return nil, fmt.Errorf("backoff multiplier must be >= 1 (got %v)", cfg.Retry.BackoffMultiplier)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	logger := log.With().Str("component", "zendesk-client").Logger()

	return &Client{
		httpClient: newHTTPClient(cfg),
		tracker:    cfg.Tracker,
		pacer:      ratelimit.NewPacer(cfg.RequestsPerMinute),
		config:     cfg,
		logger:     logger,
		sleep:      ratelimit.Sleep,
		now:        time.Now,
	}, nil
}

func newHTTPClient(cfg Config) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}

	var rt http.RoundTripper = transport
	if cfg.AccessToken != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
	}
}

// Request addresses one page of an endpoint on one subdomain.
type Request struct {
	Subdomain string
	Endpoint  string
	Query     url.Values

	// OnRetry is called before each backoff sleep. Optional.
	OnRetry func(RetryEvent)
}

// Response is a successful (2xx) response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Attempts is the number of HTTP attempts made, including the successful one.
	Attempts int

	// Throttles is the number of 429 responses absorbed.
	Throttles int

	// RetryAfter is the last server-requested delay honored, or 0.
	RetryAfter time.Duration
}

// URL expands the base URL template for req.
func (c *Client) URL(req Request) string {
	u := fmt.Sprintf(c.config.BaseURL, req.Subdomain, req.Endpoint)
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// Get performs a GET request with pacing, rate-limit tracking and retries.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	target := c.URL(req)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(req.Endpoint).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("subdomain", req.Subdomain).
		Str("endpoint", req.Endpoint).
		Str("query", req.Query.Encode()).
		Msg("Executing Zendesk request")

	return c.retryWithBackoff(ctx, req, func(ctx context.Context, attempt int) (*Response, error) {
		return c.do(ctx, req, target)
	})
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, req Request, target string) (*Response, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request pacing: %w", err)
		}
	}
	if c.tracker != nil {
		if err := c.tracker.Wait(ctx, req.Subdomain); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.AccessToken == "" {
		httpReq.SetBasicAuth(c.config.AdminEmail+"/token", c.config.APIToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(req.Endpoint, "network_error").Inc()
		return nil, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(req.Endpoint, "network_error").Inc()
		return nil, &NetworkError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	if c.tracker != nil {
		if err := c.tracker.UpdateFromHeaders(ctx, req.Subdomain, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	requestsTotal.WithLabelValues(req.Endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errorClass)).Inc()

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errorClass,
			Message:    errorMessage(resp.Status, body),
			URL:        target,
		}
		if errorClass == ErrorClassRateLimit {
			apiErr.RetryAfter = ParseRetryAfter(resp.Header.Get(ratelimit.HeaderRetryAfter), c.now())
		}

		c.logger.Warn().
			Str("subdomain", req.Subdomain).
			Str("endpoint", req.Endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errorClass)).
			Msg("Zendesk request error")
		return nil, apiErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// errorMessage extracts Zendesk's {"error": ..., "description": ...} body
// when present and falls back to the status line.
func errorMessage(status string, body []byte) string {
	var payload struct {
		Error       any    `json:"error"`
		Description string `json:"description"`
	}
	if err := gojson.Unmarshal(body, &payload); err != nil || payload.Error == nil {
		return status
	}

	msg := status
	switch e := payload.Error.(type) {
	case string:
		msg += ": " + e
	case map[string]any:
		if title, ok := e["title"].(string); ok {
			msg += ": " + title
		}
		if m, ok := e["message"].(string); ok {
			msg += " - " + m
		}
	}
	if payload.Description != "" {
		msg += " - " + payload.Description
	}
	return msg
}

// Probe tests connectivity and credentials for subdomain with one small
// Groups request. A 404 means the subdomain does not exist and a 401/403
// means the credentials were rejected.
func (c *Client) Probe(ctx context.Context, subdomain string) error {
	groups, _ := catalog.Lookup(catalog.Groups)
	_, err := c.Get(ctx, Request{
		Subdomain: subdomain,
		Endpoint:  groups.Endpoint,
		Query:     url.Values{"per_page": {"1"}},
	})
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return fmt.Errorf("%w: %q: %w", ErrBadSubdomain, subdomain, err)
	case IsAuth(err):
		return fmt.Errorf("%w for %q: %w", ErrBadCredentials, subdomain, err)
	default:
		return fmt.Errorf("probe %q: %w", subdomain, err)
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
