package client

import (
	"github.com/prashantcloudsufi/zendesk/pkg/config"
	"github.com/prashantcloudsufi/zendesk/pkg/ratelimit"
)

// ConfigFrom derives the client configuration from a validated extractor
// configuration. tracker may be nil.
func ConfigFrom(cfg config.Config, tracker *ratelimit.Tracker) Config {
	c := DefaultConfig()
	c.BaseURL = cfg.BaseURL
	c.AdminEmail = cfg.Connection.AdminEmail
	c.APIToken = cfg.Connection.APIToken
	c.AccessToken = cfg.Connection.AccessToken
	c.ConnectTimeout = cfg.Connection.ConnectTimeoutDuration()
	c.ReadTimeout = cfg.Connection.ReadTimeoutDuration()
	c.Retry.MaxRetries = cfg.Connection.MaxRetryCount
	c.Retry.MaxRateLimitRetries = cfg.MaxRateLimitRetries
	c.Retry.InitialBackoff = cfg.RetryBaseDelay
	c.Retry.MaxBackoff = cfg.MaxRetryDelay
	c.RequestsPerMinute = cfg.RequestsPerMinute
	c.Tracker = tracker
	return c
}
