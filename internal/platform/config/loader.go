package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Mode represents the operating mode.
type Mode string

const (
	ModeStrict Mode = "strict"
	ModeDev    Mode = "dev"
)

// ParseMode parses a mode string, returning an error for invalid values.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "":
		return ModeStrict, nil
	case "dev":
		return ModeDev, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be one of strict, dev", s)
	}
}

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional). If
	// provided but missing or invalid, loading fails.
	ConfigPath string

	// ModeFlag is the --mode flag value (overrides config file mode).
	ModeFlag string

	// FlagOverrides are CLI flag values that override file values.
	FlagOverrides FlagOverrides

	// Logger is used for warnings (e.g. undecoded keys). Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values. Boolean flags arrive as "true",
// "false", or "" (unset) so an unset flag does not clobber file values.
type FlagOverrides struct {
	ListenAddr      *string
	FollowRedirects *string
	RedirectLimit   *string
	OutputHeaders   *string
	LoggingLevel    *string
	AuditEnabled    *string
}

// fileConfig mirrors Config with pointer sections to detect presence.
type fileConfig struct {
	Mode       string `toml:"mode"`
	ListenAddr string `toml:"listen_addr"`

	Rules map[string]map[string]any `toml:"rules"`

	Fetch    *FetchConfig    `toml:"fetch"`
	Outbound *OutboundConfig `toml:"outbound"`
	Audit    *AuditConfig    `toml:"audit"`
	Auth     *AuthConfig     `toml:"auth"`
	Logging  *LoggingConfig  `toml:"logging"`
}

// Load loads configuration with the following precedence:
//  1. Determine effective mode: --mode flag > mode in config file > strict
//  2. Start from mode preset defaults
//  3. Overlay TOML config file values
//  4. Overlay CLI flags
//  5. Validate
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var fc fileConfig
	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	modeStr := string(ModeStrict)
	if fc.Mode != "" {
		modeStr = fc.Mode
	}
	if opts.ModeFlag != "" {
		modeStr = opts.ModeFlag
	}
	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	cfg := presetForMode(mode)

	if opts.ConfigPath != "" {
		overlayFileConfig(cfg, &fc)
	}
	if err := overlayFlags(cfg, opts.FlagOverrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func presetForMode(mode Mode) *Config {
	if mode == ModeDev {
		return DevConfig()
	}
	return StrictConfig()
}

// StrictConfig returns production-safe defaults: redirects are not
// followed, credentials are rejected, only the built-in rule defaults
// apply.
func StrictConfig() *Config {
	return &Config{
		Mode:       string(ModeStrict),
		ListenAddr: "127.0.0.1:8090",
		Fetch: FetchConfig{
			FollowRedirects:  false,
			RedirectLimit:    0,
			OutputHeaders:    false,
			AllowCredentials: false,
		},
		Outbound: OutboundConfig{
			TimeoutMS:        10000,
			ConnectTimeoutMS: 2000,
			MaxResponseBytes: 1048576,
			UserAgent:        "fetchguard",
		},
		Audit: AuditConfig{
			Enabled: false,
			Driver:  "sqlite",
			DataDir: ".fetchguard",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DevConfig returns development defaults: verbose logging and redirect
// following with a small bound.
func DevConfig() *Config {
	cfg := StrictConfig()
	cfg.Mode = string(ModeDev)
	cfg.Fetch.FollowRedirects = true
	cfg.Fetch.RedirectLimit = 3
	cfg.Outbound.InsecureSkipVerify = true
	cfg.Logging.Level = "debug"
	return cfg
}

func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if len(fc.Rules) > 0 {
		cfg.Rules = fc.Rules
	}
	if fc.Fetch != nil {
		cfg.Fetch.FollowRedirects = fc.Fetch.FollowRedirects
		if fc.Fetch.RedirectLimit != 0 {
			cfg.Fetch.RedirectLimit = fc.Fetch.RedirectLimit
		}
		cfg.Fetch.OutputHeaders = fc.Fetch.OutputHeaders
		cfg.Fetch.AllowCredentials = fc.Fetch.AllowCredentials
	}
	if fc.Outbound != nil {
		if fc.Outbound.TimeoutMS != 0 {
			cfg.Outbound.TimeoutMS = fc.Outbound.TimeoutMS
		}
		if fc.Outbound.ConnectTimeoutMS != 0 {
			cfg.Outbound.ConnectTimeoutMS = fc.Outbound.ConnectTimeoutMS
		}
		if fc.Outbound.MaxResponseBytes != 0 {
			cfg.Outbound.MaxResponseBytes = fc.Outbound.MaxResponseBytes
		}
		cfg.Outbound.InsecureSkipVerify = fc.Outbound.InsecureSkipVerify
		if fc.Outbound.UserAgent != "" {
			cfg.Outbound.UserAgent = fc.Outbound.UserAgent
		}
	}
	if fc.Audit != nil {
		cfg.Audit.Enabled = fc.Audit.Enabled
		if fc.Audit.Driver != "" {
			cfg.Audit.Driver = fc.Audit.Driver
		}
		if fc.Audit.DataDir != "" {
			cfg.Audit.DataDir = fc.Audit.DataDir
		}
	}
	if fc.Auth != nil {
		if fc.Auth.TokenHash != "" {
			cfg.Auth.TokenHash = fc.Auth.TokenHash
		}
	}
	if fc.Logging != nil {
		if fc.Logging.Level != "" {
			cfg.Logging.Level = fc.Logging.Level
		}
	}
}

func overlayFlags(cfg *Config, f FlagOverrides) error {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.ListenAddr = *f.ListenAddr
	}
	if f.FollowRedirects != nil && *f.FollowRedirects != "" {
		cfg.Fetch.FollowRedirects = *f.FollowRedirects == "true"
	}
	if f.RedirectLimit != nil && *f.RedirectLimit != "" {
		n, err := strconv.Atoi(*f.RedirectLimit)
		if err != nil {
			return fmt.Errorf("invalid redirect limit %q: %w", *f.RedirectLimit, err)
		}
		cfg.Fetch.RedirectLimit = n
	}
	if f.OutputHeaders != nil && *f.OutputHeaders != "" {
		cfg.Fetch.OutputHeaders = *f.OutputHeaders == "true"
	}
	if f.LoggingLevel != nil && *f.LoggingLevel != "" {
		cfg.Logging.Level = *f.LoggingLevel
	}
	if f.AuditEnabled != nil && *f.AuditEnabled != "" {
		cfg.Audit.Enabled = *f.AuditEnabled == "true"
	}
	return nil
}

// validate checks enum fields and value constraints, failing fast on
// invalid configuration.
func validate(cfg *Config) error {
	if cfg.Fetch.RedirectLimit < 0 {
		return fmt.Errorf("fetch.redirect_limit must be >= 0, got %d", cfg.Fetch.RedirectLimit)
	}

	for cat := range cfg.Rules {
		switch cat {
		case "scheme", "port", "host", "ip":
			// valid
		default:
			return fmt.Errorf("unknown rule category %q: must be one of scheme, port, host, ip", cat)
		}
	}

	switch cfg.Audit.Driver {
	case "", "sqlite":
		// valid (empty defaults to sqlite)
	default:
		return fmt.Errorf("invalid audit.driver %q: must be sqlite", cfg.Audit.Driver)
	}
	if cfg.Audit.Enabled && cfg.Audit.DataDir == "" {
		return fmt.Errorf("audit.data_dir must be set when audit is enabled")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}

	return nil
}
