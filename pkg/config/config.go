// Package config holds the extractor configuration: connection profile,
// object selection, filters and tuning knobs, plus the validation that runs
// before any network call.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// Mode selects between a single object type and the multiplexed run.
type Mode string

const (
	// ModeSingle extracts exactly one object type into one flat schema.
	ModeSingle Mode = "single"

	// ModeMulti extracts several object types, tagging each record with its table key.
	ModeMulti Mode = "multi"
)

// DefaultBaseURL is the Zendesk API URL template (subdomain, endpoint).
const DefaultBaseURL = "https://%s.zendesk.com/api/v2/%s"

// Connection is the connection profile shared by every split of a run.
type Connection struct {
	AdminEmail  string   `mapstructure:"admin_email"`
	APIToken    string   `mapstructure:"api_token"`
	AccessToken string   `mapstructure:"access_token"`
	Subdomains  []string `mapstructure:"subdomains"`

	MaxRetryCount  int `mapstructure:"max_retry_count"`
	ConnectTimeout int `mapstructure:"connect_timeout"` // seconds
	ReadTimeout    int `mapstructure:"read_timeout"`    // seconds
}

// ConnectTimeoutDuration returns the connect timeout as a duration.
func (c Connection) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// ReadTimeoutDuration returns the read timeout as a duration.
func (c Connection) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// SubdomainList returns the configured subdomains trimmed, lower-cased and
// de-duplicated, in configuration order. Entries may themselves be
// comma-separated lists.
func (c Connection) SubdomainList() []string {
	seen := make(map[string]bool)
	var out []string
	for _, entry := range c.Subdomains {
		for _, s := range strings.Split(entry, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Config is the full extractor configuration.
type Config struct {
	ReferenceName string     `mapstructure:"reference_name"`
	Mode          Mode       `mapstructure:"mode"`
	Connection    Connection `mapstructure:"connection"`

	ObjectsToPull []string `mapstructure:"objects_to_pull"`
	ObjectsToSkip []string `mapstructure:"objects_to_skip"`

	// StartDate and EndDate are RFC 3339 date-times.
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`

	SatisfactionRatingsScore string `mapstructure:"satisfaction_ratings_score"`

	BaseURL        string `mapstructure:"base_url"`
	Schema         string `mapstructure:"schema"`
	TableNameField string `mapstructure:"table_name_field"`

	PageSize            int           `mapstructure:"page_size"`
	MaxRateLimitRetries int           `mapstructure:"max_rate_limit_retries"`
	RetryBaseDelay      time.Duration `mapstructure:"retry_base_delay"`
	MaxRetryDelay       time.Duration `mapstructure:"max_retry_delay"`
	Workers             int           `mapstructure:"workers"`
	RequestsPerMinute   int           `mapstructure:"requests_per_minute"`
	ShareThrottle       bool          `mapstructure:"share_throttle"`
	RedisAddr           string        `mapstructure:"redis_addr"`
}

// DefaultConfig returns a configuration with every optional knob set.
func DefaultConfig() Config {
	return Config{
		ReferenceName: "zendesk",
		Mode:          ModeMulti,
		Connection: Connection{
			MaxRetryCount:  20,
			ConnectTimeout: 300,
			ReadTimeout:    300,
		},
		BaseURL:             DefaultBaseURL,
		TableNameField:      "tablename",
		PageSize:            100,
		MaxRateLimitRetries: 10,
		RetryBaseDelay:      1 * time.Second,
		MaxRetryDelay:       60 * time.Second,
		Workers:             4,
	}
}

// Objects resolves the object types to extract, in catalog order: the pull
// list (or the whole catalog when it is empty) minus the skip list. Unknown
// names are ignored here and reported by Validate.
func (c Config) Objects() ([]string, error) {
	pull := toSet(c.ObjectsToPull)
	skip := toSet(c.ObjectsToSkip)

	var out []string
	for _, name := range catalog.Names() {
		if len(pull) > 0 && !pull[name] {
			continue
		}
		if skip[name] {
			continue
		}
		out = append(out, name)
	}

	if len(out) == 0 {
		if len(skip) > 0 {
			return nil, ErrAllSkipped
		}
		return nil, ErrNoObjects
	}
	return out, nil
}

// Dates parses the configured date range. Either bound may be nil.
func (c Config) Dates() (start, end *time.Time, err error) {
	if start, err = parseDate(c.StartDate); err != nil {
		return nil, nil, fmt.Errorf("start_date: %w", err)
	}
	if end, err = parseDate(c.EndDate); err != nil {
		return nil, nil, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SchemaOverride parses the configured schema. It returns nil when no
// override is configured or when the run is multiplexed.
func (c Config) SchemaOverride() (*schema.Schema, error) {
	if c.Schema == "" || c.Mode != ModeSingle {
		return nil, nil
	}
	return schema.Parse(c.Schema)
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range splitList(names) {
		set[n] = true
	}
	return set
}
