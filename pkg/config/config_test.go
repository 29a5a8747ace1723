package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Connection.AdminEmail = "admin@example.com"
	cfg.Connection.APIToken = "token"
	cfg.Connection.Subdomains = []string{"acme"}
	cfg.ObjectsToPull = []string{"Groups"}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TableNameField != "tablename" {
		t.Errorf("TableNameField = %q, want tablename", cfg.TableNameField)
	}
	if cfg.BaseURL != "https://%s.zendesk.com/api/v2/%s" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Connection.MaxRetryCount != 20 {
		t.Errorf("MaxRetryCount = %d, want 20", cfg.Connection.MaxRetryCount)
	}
	if cfg.Connection.ReadTimeoutDuration() != 300*time.Second {
		t.Errorf("ReadTimeoutDuration = %v, want 5m", cfg.Connection.ReadTimeoutDuration())
	}
	if cfg.Mode != ModeMulti {
		t.Errorf("Mode = %q, want multi", cfg.Mode)
	}
}

func TestValidate_Valid(t *testing.T) {
	if fs := validConfig().Validate(); len(fs) != 0 {
		t.Errorf("Validate() = %v, want no failures", fs)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		prop   string
	}{
		{"empty reference name", func(c *Config) { c.ReferenceName = "" }, PropReferenceName},
		{"bad reference name", func(c *Config) { c.ReferenceName = "my source!" }, PropReferenceName},
		{"bad mode", func(c *Config) { c.Mode = "both" }, PropMode},
		{"missing email", func(c *Config) { c.Connection.AdminEmail = "" }, PropAdminEmail},
		{"bad email", func(c *Config) { c.Connection.AdminEmail = "not-an-email" }, PropAdminEmail},
		{"display name email", func(c *Config) { c.Connection.AdminEmail = "Admin <a@example.com>" }, PropAdminEmail},
		{"missing token", func(c *Config) { c.Connection.APIToken = "" }, PropAPIToken},
		{"no subdomains", func(c *Config) { c.Connection.Subdomains = nil }, PropSubdomains},
		{"bad subdomain", func(c *Config) { c.Connection.Subdomains = []string{"ac_me"} }, PropSubdomains},
		{"zero retries", func(c *Config) { c.Connection.MaxRetryCount = 0 }, PropMaxRetryCount},
		{"zero connect timeout", func(c *Config) { c.Connection.ConnectTimeout = 0 }, PropConnectTimeout},
		{"zero read timeout", func(c *Config) { c.Connection.ReadTimeout = 0 }, PropReadTimeout},
		{"unknown pull", func(c *Config) { c.ObjectsToPull = []string{"Macros"} }, PropObjectsToPull},
		{"unknown skip", func(c *Config) { c.ObjectsToSkip = []string{"Macros"} }, PropObjectsToSkip},
		{"all skipped", func(c *Config) { c.ObjectsToSkip = []string{"Groups"} }, PropObjectsToSkip},
		{"bad start date", func(c *Config) { c.StartDate = "2024-01-01" }, PropStartDate},
		{"bad end date", func(c *Config) { c.EndDate = "yesterday" }, PropEndDate},
		{"end before start", func(c *Config) {
			c.StartDate = "2024-02-01T00:00:00Z"
			c.EndDate = "2024-01-01T00:00:00Z"
		}, PropEndDate},
		{"start required", func(c *Config) { c.ObjectsToPull = []string{"Tickets"} }, PropStartDate},
		{"bad score", func(c *Config) { c.SatisfactionRatingsScore = "5" }, PropScore},
		{"bad base url", func(c *Config) { c.BaseURL = "https://zendesk.com/api/v2/%s" }, PropBaseURL},
		{"bad schema", func(c *Config) { c.Schema = `{"type":"record"` }, PropSchema},
		{"bad table name field", func(c *Config) { c.TableNameField = "table name" }, PropTableNameField},
		{"table name collision", func(c *Config) { c.TableNameField = "name" }, PropTableNameField},
		{"single without object", func(c *Config) {
			c.Mode = ModeSingle
			c.ObjectsToPull = nil
		}, PropObjectsToPull},
		{"single with two objects", func(c *Config) {
			c.Mode = ModeSingle
			c.ObjectsToPull = []string{"Groups", "Tags"}
		}, PropObjectsToPull},
		{"page size too large", func(c *Config) { c.PageSize = 5000 }, PropPageSize},
		{"negative rate limit retries", func(c *Config) { c.MaxRateLimitRetries = -1 }, PropRateLimit},
		{"zero base delay", func(c *Config) { c.RetryBaseDelay = 0 }, PropRetryBaseDelay},
		{"max delay below base", func(c *Config) { c.MaxRetryDelay = time.Millisecond }, PropMaxRetryDelay},
		{"zero workers", func(c *Config) { c.Workers = 0 }, PropWorkers},
		{"negative pacing", func(c *Config) { c.RequestsPerMinute = -5 }, PropRequestsPerMin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			fs := cfg.Validate()
			if !fs.Has(tt.prop) {
				t.Errorf("Validate() properties = %v, want %s", fs.Properties(), tt.prop)
			}
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.ReferenceName = "bad name"
	cfg.Connection.AdminEmail = "nope"
	cfg.StartDate = "soon"
	cfg.Connection.MaxRetryCount = 0

	fs := cfg.Validate()
	for _, prop := range []string{PropReferenceName, PropAdminEmail, PropStartDate, PropMaxRetryCount} {
		if !fs.Has(prop) {
			t.Errorf("missing failure for %s in %v", prop, fs.Properties())
		}
	}

	err := fs.Err()
	if err == nil {
		t.Fatal("Err() = nil, want error")
	}
	var f Failure
	if !errors.As(err, &f) {
		t.Error("errors.As(Failure) failed on Failures")
	}
}

func TestValidate_AccessTokenReplacesBasicAuth(t *testing.T) {
	cfg := validConfig()
	cfg.Connection.AdminEmail = ""
	cfg.Connection.APIToken = ""
	cfg.Connection.AccessToken = "oauth-token"

	if fs := cfg.Validate(); len(fs) != 0 {
		t.Errorf("Validate() = %v, want no failures", fs)
	}
}

func TestFailures_ErrEmpty(t *testing.T) {
	var fs Failures
	if fs.Err() != nil {
		t.Error("Err() on empty failures should be nil")
	}
}

func TestObjects(t *testing.T) {
	tests := []struct {
		name string
		pull []string
		skip []string
		want []string
		err  error
	}{
		{
			name: "pull keeps catalog order",
			pull: []string{"Users", "Groups"},
			want: []string{"Groups", "Users"},
		},
		{
			name: "skip wins over pull",
			pull: []string{"Users", "Groups"},
			skip: []string{"Users"},
			want: []string{"Groups"},
		},
		{
			name: "comma separated entries",
			pull: []string{"Tags, Groups"},
			want: []string{"Groups", "Tags"},
		},
		{
			name: "everything skipped",
			pull: []string{"Groups"},
			skip: []string{"Groups"},
			err:  ErrAllSkipped,
		},
		{
			name: "pull matches nothing",
			pull: []string{"Macros"},
			err:  ErrNoObjects,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ObjectsToPull = tt.pull
			cfg.ObjectsToSkip = tt.skip

			got, err := cfg.Objects()
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("Objects() error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Objects() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Objects() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObjects_EmptyPullMeansAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ObjectsToSkip = []string{"Tickets"}

	got, err := cfg.Objects()
	if err != nil {
		t.Fatalf("Objects() error = %v", err)
	}
	if len(got) != 12 {
		t.Errorf("Objects() returned %d objects, want 12", len(got))
	}
	if slices.Contains(got, "Tickets") {
		t.Error("skipped object returned")
	}
}

func TestSubdomainList(t *testing.T) {
	c := Connection{Subdomains: []string{" Acme ,beta", "acme", ""}}
	got := c.SubdomainList()
	want := []string{"acme", "beta"}
	if !slices.Equal(got, want) {
		t.Errorf("SubdomainList() = %v, want %v", got, want)
	}
}

func TestSchemaOverride(t *testing.T) {
	cfg := validConfig()
	cfg.Schema = `{"type":"record","name":"g","fields":[{"name":"id","type":"long"}]}`

	s, err := cfg.SchemaOverride()
	if err != nil || s != nil {
		t.Errorf("multi mode SchemaOverride() = %v, %v; want nil, nil", s, err)
	}

	cfg.Mode = ModeSingle
	s, err = cfg.SchemaOverride()
	if err != nil {
		t.Fatalf("SchemaOverride() error = %v", err)
	}
	if s == nil || s.Name != "g" {
		t.Errorf("SchemaOverride() = %v, want record g", s)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zendesk.yaml")
	content := `
reference_name: support
connection:
  admin_email: admin@example.com
  api_token: file-token
  subdomains: [acme, beta]
objects_to_pull:
  - Groups
page_size: 50
retry_base_delay: 2s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ZENDESK_CONNECTION_API_TOKEN", "env-token")
	t.Setenv("ZENDESK_WORKERS", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ReferenceName != "support" {
		t.Errorf("ReferenceName = %q, want support", cfg.ReferenceName)
	}
	if cfg.Connection.APIToken != "env-token" {
		t.Errorf("APIToken = %q, want env-token", cfg.Connection.APIToken)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.PageSize)
	}
	if cfg.RetryBaseDelay != 2*time.Second {
		t.Errorf("RetryBaseDelay = %v, want 2s", cfg.RetryBaseDelay)
	}
	if !slices.Equal(cfg.Connection.SubdomainList(), []string{"acme", "beta"}) {
		t.Errorf("Subdomains = %v", cfg.Connection.Subdomains)
	}
	if cfg.TableNameField != "tablename" {
		t.Errorf("TableNameField default lost: %q", cfg.TableNameField)
	}
	if fs := cfg.Validate(); len(fs) != 0 {
		t.Errorf("Validate() = %v", fs)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}
