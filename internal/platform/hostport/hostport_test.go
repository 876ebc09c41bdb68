package hostport

import (
	"net/url"
	"testing"
)

func TestDefaultPort(t *testing.T) {
	tests := []struct {
		scheme string
		want   string
	}{
		{"http", "80"},
		{"https", "443"},
		{"HTTP", "80"},
		{"HTTPS", "443"},
		{"ftp", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DefaultPort(tt.scheme); got != tt.want {
			t.Errorf("DefaultPort(%q) = %q, want %q", tt.scheme, got, tt.want)
		}
	}
}

func TestEffectivePort(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{"http://example.com", "80"},
		{"https://example.com", "443"},
		{"http://example.com:8080", "8080"},
		{"https://example.com:443", "443"},
		// Substitution applies to IP-literal hosts the same way.
		{"http://1.1.1.1", "80"},
		{"https://1.1.1.1", "443"},
		{"http://1.1.1.1:9000", "9000"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.rawURL)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.rawURL, err)
		}
		if got := EffectivePort(u); got != tt.want {
			t.Errorf("EffectivePort(%q) = %q, want %q", tt.rawURL, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("example.com", "80"); got != "example.com:80" {
		t.Errorf("Join = %q", got)
	}
}

func TestCanonicalHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"EXAMPLE.COM", "example.com"},
		{"Example.Org", "example.org"},
		{"  example.com ", "example.com"},
		{"1.1.1.1", "1.1.1.1"},
	}
	for _, tt := range tests {
		if got := CanonicalHost(tt.in); got != tt.want {
			t.Errorf("CanonicalHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
