// Package hostport provides scheme-aware host and port normalization.
// It is the single source of truth for scheme default ports, used both
// when substituting a missing port during validation and when pinning a
// resolved address for a specific host:port pair.
package hostport

import (
	"net"
	"net/url"
	"strings"
)

// DefaultPort returns the default port for a scheme, or "" when the
// scheme has no well-known default.
func DefaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}

// EffectivePort returns the port a request to u would actually use:
// the explicit port when present, otherwise the scheme default. The
// substitution applies uniformly to named hosts and IP-literal hosts.
func EffectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	return DefaultPort(u.Scheme)
}

// Join combines a host and port into a dialable authority.
func Join(host, port string) string {
	return net.JoinHostPort(host, port)
}

// CanonicalHost lowercases a hostname for comparison and canonical URL
// construction. Ports and brackets are not accepted here; callers pass
// url.URL.Hostname() output.
func CanonicalHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
