// Package config provides configuration loading and validation for the
// fetchguard sidecar and CLI.
package config

// Config is the effective configuration after preset, file, and flag
// overlay.
type Config struct {
	// Mode is the operating mode: strict or dev.
	Mode string

	// ListenAddr is the sidecar listen address.
	ListenAddr string

	// Rules holds the raw per-category rule lists as decoded from TOML:
	// [rules.scheme], [rules.port], [rules.host], [rules.ip], each with
	// whitelist/blacklist arrays. They stay untyped here and are decoded
	// into rules.Entries at wiring time.
	Rules map[string]map[string]any

	Fetch    FetchConfig
	Outbound OutboundConfig
	Audit    AuditConfig
	Auth     AuthConfig
	Logging  LoggingConfig
}

// FetchConfig controls the executor.
type FetchConfig struct {
	FollowRedirects  bool  `toml:"follow_redirects"`
	RedirectLimit    int   `toml:"redirect_limit"`
	OutputHeaders    bool  `toml:"output_headers"`
	AllowCredentials bool  `toml:"allow_credentials"`
}

// OutboundConfig tunes the HTTP transport.
type OutboundConfig struct {
	TimeoutMS          int    `toml:"timeout_ms"`
	ConnectTimeoutMS   int    `toml:"connect_timeout_ms"`
	MaxResponseBytes   int64  `toml:"max_response_bytes"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	UserAgent          string `toml:"user_agent"`
}

// AuditConfig controls the fetch decision audit log.
type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Driver  string `toml:"driver"`
	DataDir string `toml:"data_dir"`
}

// AuthConfig controls sidecar API authentication. TokenHash is the
// bcrypt hash of the bearer token; empty disables auth.
type AuthConfig struct {
	TokenHash string `toml:"token_hash"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Redacted returns a copy safe for logging. Rule lists and knobs are not
// secrets; only the token hash is masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Auth.TokenHash != "" {
		out.Auth.TokenHash = "[redacted]"
	}
	return out
}
