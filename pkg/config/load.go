package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ZENDESK_CONNECTION_API_TOKEN.
const EnvPrefix = "ZENDESK"

// Load reads configuration from path (YAML, JSON or TOML, chosen by
// extension) layered over DefaultConfig, with ZENDESK_* environment
// variables taking precedence. An empty path reads the environment only.
// The result is not validated.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides are seen by
// Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("reference_name", d.ReferenceName)
	v.SetDefault("mode", string(d.Mode))

	v.SetDefault("connection.admin_email", d.Connection.AdminEmail)
	v.SetDefault("connection.api_token", d.Connection.APIToken)
	v.SetDefault("connection.access_token", d.Connection.AccessToken)
	v.SetDefault("connection.subdomains", d.Connection.Subdomains)
	v.SetDefault("connection.max_retry_count", d.Connection.MaxRetryCount)
	v.SetDefault("connection.connect_timeout", d.Connection.ConnectTimeout)
	v.SetDefault("connection.read_timeout", d.Connection.ReadTimeout)

	v.SetDefault("objects_to_pull", d.ObjectsToPull)
	v.SetDefault("objects_to_skip", d.ObjectsToSkip)
	v.SetDefault("start_date", d.StartDate)
	v.SetDefault("end_date", d.EndDate)
	v.SetDefault("satisfaction_ratings_score", d.SatisfactionRatingsScore)

	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("schema", d.Schema)
	v.SetDefault("table_name_field", d.TableNameField)

	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("max_rate_limit_retries", d.MaxRateLimitRetries)
	v.SetDefault("retry_base_delay", d.RetryBaseDelay)
	v.SetDefault("max_retry_delay", d.MaxRetryDelay)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("requests_per_minute", d.RequestsPerMinute)
	v.SetDefault("share_throttle", d.ShareThrottle)
	v.SetDefault("redis_addr", d.RedisAddr)
}
