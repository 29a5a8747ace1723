package config

import (
	"errors"
	"net/mail"
	"regexp"
	"slices"
	"strings"

	"github.com/prashantcloudsufi/zendesk/pkg/catalog"
	"github.com/prashantcloudsufi/zendesk/pkg/schema"
)

// Property names used in Failures.
const (
	PropReferenceName  = "reference_name"
	PropMode           = "mode"
	PropAdminEmail     = "connection.admin_email"
	PropAPIToken       = "connection.api_token"
	PropSubdomains     = "connection.subdomains"
	PropMaxRetryCount  = "connection.max_retry_count"
	PropConnectTimeout = "connection.connect_timeout"
	PropReadTimeout    = "connection.read_timeout"
	PropObjectsToPull  = "objects_to_pull"
	PropObjectsToSkip  = "objects_to_skip"
	PropStartDate      = "start_date"
	PropEndDate        = "end_date"
	PropScore          = "satisfaction_ratings_score"
	PropBaseURL        = "base_url"
	PropSchema         = "schema"
	PropTableNameField = "table_name_field"
	PropPageSize       = "page_size"
	PropRateLimit      = "max_rate_limit_retries"
	PropRetryBaseDelay = "retry_base_delay"
	PropMaxRetryDelay  = "max_retry_delay"
	PropWorkers        = "workers"
	PropRequestsPerMin = "requests_per_minute"
)

// MaxPageSize is the largest per_page the API accepts.
const MaxPageSize = 1000

// Scores are the satisfaction rating score filters the API accepts.
var Scores = []string{
	"offered", "unoffered", "received",
	"received_with_comment", "received_without_comment",
	"good", "good_with_comment", "good_without_comment",
	"bad", "bad_with_comment", "bad_without_comment",
}

var (
	referenceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	subdomainPattern     = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	identifierPattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks the whole configuration and returns every violation found.
// It performs no network access.
func (c Config) Validate() Failures {
	var fs Failures

	if c.ReferenceName == "" {
		fs.add(PropReferenceName, "reference name is required")
	} else if !referenceNamePattern.MatchString(c.ReferenceName) {
		fs.add(PropReferenceName, "invalid reference name %q: only letters, digits, '_', '.' and '-' are allowed", c.ReferenceName)
	}

	if c.Mode != ModeSingle && c.Mode != ModeMulti {
		fs.add(PropMode, "mode must be %q or %q, got %q", ModeSingle, ModeMulti, c.Mode)
	}

	c.validateConnection(&fs)
	objects := c.validateObjects(&fs)
	c.validateFilters(&fs, objects)
	c.validateOutput(&fs, objects)
	c.validateTuning(&fs)

	return fs
}

func (c Config) validateConnection(fs *Failures) {
	conn := c.Connection

	if conn.AccessToken == "" || conn.AdminEmail != "" {
		if conn.AdminEmail == "" {
			fs.add(PropAdminEmail, "admin email is required")
		} else if !validEmail(conn.AdminEmail) {
			fs.add(PropAdminEmail, "invalid email address %q", conn.AdminEmail)
		}
	}
	if conn.AccessToken == "" && conn.APIToken == "" {
		fs.add(PropAPIToken, "api token is required when no access token is set")
	}

	subdomains := conn.SubdomainList()
	if len(subdomains) == 0 {
		fs.add(PropSubdomains, "at least one subdomain is required")
	}
	for _, s := range subdomains {
		if !subdomainPattern.MatchString(s) {
			fs.add(PropSubdomains, "invalid subdomain %q", s)
		}
	}

	if conn.MaxRetryCount < 1 {
		fs.add(PropMaxRetryCount, "must be at least 1, got %d", conn.MaxRetryCount)
	}
	if conn.ConnectTimeout < 1 {
		fs.add(PropConnectTimeout, "must be at least 1 second, got %d", conn.ConnectTimeout)
	}
	if conn.ReadTimeout < 1 {
		fs.add(PropReadTimeout, "must be at least 1 second, got %d", conn.ReadTimeout)
	}
}

// validateObjects reports unknown names and returns the resolved selection.
func (c Config) validateObjects(fs *Failures) []string {
	pull := splitList(c.ObjectsToPull)
	for _, name := range pull {
		if _, ok := catalog.Lookup(name); !ok {
			fs.add(PropObjectsToPull, "unknown object %q", name)
		}
	}
	for _, name := range splitList(c.ObjectsToSkip) {
		if _, ok := catalog.Lookup(name); !ok {
			fs.add(PropObjectsToSkip, "unknown object %q", name)
		}
	}

	if c.Mode == ModeSingle && len(pull) != 1 {
		fs.add(PropObjectsToPull, "single mode requires exactly one object, got %d", len(pull))
	}

	objects, err := c.Objects()
	switch {
	case errors.Is(err, ErrAllSkipped):
		fs.wrap(PropObjectsToSkip, "nothing left to extract", err)
	case err != nil:
		fs.wrap(PropObjectsToPull, "nothing to extract", err)
	}
	return objects
}

func (c Config) validateFilters(fs *Failures, objects []string) {
	start, err := parseDate(c.StartDate)
	if err != nil {
		fs.wrap(PropStartDate, "invalid date-time, expected RFC 3339 such as 2024-01-02T15:04:05Z", err)
	}
	end, err := parseDate(c.EndDate)
	if err != nil {
		fs.wrap(PropEndDate, "invalid date-time, expected RFC 3339 such as 2024-01-02T15:04:05Z", err)
	}
	if start != nil && end != nil && end.Before(*start) {
		fs.add(PropEndDate, "end date %s is before start date %s", c.EndDate, c.StartDate)
	}

	if c.StartDate == "" {
		var needing []string
		for _, name := range objects {
			if d, ok := catalog.Lookup(name); ok && d.DateFilter {
				needing = append(needing, name)
			}
		}
		if len(needing) > 0 {
			fs.add(PropStartDate, "start date is required for %s", strings.Join(needing, ", "))
		}
	}

	if c.SatisfactionRatingsScore != "" && !slices.Contains(Scores, c.SatisfactionRatingsScore) {
		fs.add(PropScore, "invalid score %q, expected one of %s", c.SatisfactionRatingsScore, strings.Join(Scores, ", "))
	}
}

func (c Config) validateOutput(fs *Failures, objects []string) {
	if strings.Count(c.BaseURL, "%s") != 2 {
		fs.add(PropBaseURL, "base url must contain two %%s verbs (subdomain, endpoint), got %q", c.BaseURL)
	}

	if c.Schema != "" {
		if _, err := schema.Parse(c.Schema); err != nil {
			fs.wrap(PropSchema, "unable to parse output schema", err)
		}
	}

	if c.Mode != ModeMulti {
		return
	}
	if !identifierPattern.MatchString(c.TableNameField) {
		fs.add(PropTableNameField, "invalid field name %q", c.TableNameField)
		return
	}
	for _, name := range objects {
		d, _ := catalog.Lookup(name)
		if _, clash := d.Schema.Field(c.TableNameField); clash {
			fs.add(PropTableNameField, "field %q already exists in the %s schema", c.TableNameField, name)
		}
	}
}

func (c Config) validateTuning(fs *Failures) {
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		fs.add(PropPageSize, "must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	}
	if c.MaxRateLimitRetries < 0 {
		fs.add(PropRateLimit, "must not be negative, got %d", c.MaxRateLimitRetries)
	}
	if c.RetryBaseDelay <= 0 {
		fs.add(PropRetryBaseDelay, "must be positive, got %s", c.RetryBaseDelay)
	}
	if c.MaxRetryDelay < c.RetryBaseDelay {
		fs.add(PropMaxRetryDelay, "must be at least retry_base_delay (%s), got %s", c.RetryBaseDelay, c.MaxRetryDelay)
	}
	if c.Workers < 1 {
		fs.add(PropWorkers, "must be at least 1, got %d", c.Workers)
	}
	if c.RequestsPerMinute < 0 {
		fs.add(PropRequestsPerMin, "must not be negative, got %d", c.RequestsPerMinute)
	}
}

// validEmail accepts a bare address only, rejecting display-name forms.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func splitList(names []string) []string {
	var out []string
	for _, entry := range names {
		for _, n := range strings.Split(entry, ",") {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, n)
			}
		}
	}
	return out
}
