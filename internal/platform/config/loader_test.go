package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fetchguard/fetchguard/internal/platform/cfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fetchguard.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(LoaderOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Mode != "strict" {
		t.Errorf("mode = %q, want strict", c.Mode)
	}
	if c.Fetch.FollowRedirects {
		t.Error("redirect following must default to off")
	}
	if c.Fetch.RedirectLimit != 0 {
		t.Errorf("redirect limit = %d, want 0 (unlimited when enabled)", c.Fetch.RedirectLimit)
	}
	if c.Fetch.AllowCredentials {
		t.Error("credentials must default to rejected")
	}
	if c.Audit.Enabled {
		t.Error("audit must default to off")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := writeConfig(t, `
listen_addr = "127.0.0.1:9999"

[fetch]
follow_redirects = true
redirect_limit = 5

[rules.host]
blacklist = ['(.*)\.internal\.test']

[rules.ip]
whitelist = ["1.1.1.1"]

[logging]
level = "debug"
`)
	c, err := Load(LoaderOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("listen_addr = %q", c.ListenAddr)
	}
	if !c.Fetch.FollowRedirects || c.Fetch.RedirectLimit != 5 {
		t.Errorf("fetch overlay failed: %+v", c.Fetch)
	}
	if c.Logging.Level != "debug" {
		t.Errorf("logging.level = %q", c.Logging.Level)
	}

	// Raw rule maps decode into typed entries at wiring time.
	var host struct {
		Whitelist []string `mapstructure:"whitelist"`
		Blacklist []string `mapstructure:"blacklist"`
	}
	if err := cfg.Decode(c.Rules["host"], &host); err != nil {
		t.Fatalf("decode host rules: %v", err)
	}
	if len(host.Blacklist) != 1 || !strings.Contains(host.Blacklist[0], "internal") {
		t.Errorf("host blacklist = %v", host.Blacklist)
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	path := writeConfig(t, `
[fetch]
follow_redirects = true
`)
	follow := "false"
	limit := "2"
	c, err := Load(LoaderOptions{
		ConfigPath: path,
		FlagOverrides: FlagOverrides{
			FollowRedirects: &follow,
			RedirectLimit:   &limit,
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Fetch.FollowRedirects {
		t.Error("flag must override file value")
	}
	if c.Fetch.RedirectLimit != 2 {
		t.Errorf("redirect limit = %d, want 2", c.Fetch.RedirectLimit)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"negative redirect limit", "[fetch]\nredirect_limit = -1\n"},
		{"unknown rule category", "[rules.protocol]\nwhitelist = [\"http\"]\n"},
		{"bad logging level", "[logging]\nlevel = \"verbose\"\n"},
		{"bad audit driver", "[audit]\ndriver = \"postgres\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.toml)
			if _, err := Load(LoaderOptions{ConfigPath: path}); err == nil {
				t.Error("expected load failure")
			}
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(LoaderOptions{ConfigPath: "/does/not/exist.toml"}); err == nil {
		t.Error("missing config file must fail fast")
	}
}

func TestDevMode(t *testing.T) {
	c, err := Load(LoaderOptions{ModeFlag: "dev"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Fetch.FollowRedirects || c.Fetch.RedirectLimit != 3 {
		t.Errorf("dev preset fetch = %+v", c.Fetch)
	}
	if c.Logging.Level != "debug" {
		t.Errorf("dev preset logging = %q", c.Logging.Level)
	}
}

func TestRedacted(t *testing.T) {
	c := StrictConfig()
	c.Auth.TokenHash = "$2a$10$abcdefghijklmnopqrstuv"
	r := c.Redacted()
	if r.Auth.TokenHash != "[redacted]" {
		t.Error("token hash must be redacted")
	}
	if c.Auth.TokenHash == "[redacted]" {
		t.Error("redaction must not mutate the original")
	}
}
