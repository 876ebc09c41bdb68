// Package validate decides whether a URL may be fetched. It parses the
// URL, applies the configured rule lists per category, resolves the
// hostname to IPv4 addresses and returns a descriptor carrying the exact
// addresses that passed the checks, so the executor can pin them for the
// connection.
package validate

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/fetchguard/fetchguard/internal/components/rules"
	"github.com/fetchguard/fetchguard/internal/platform/hostport"
)

// Resolver abstracts DNS resolution for testing.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Descriptor is the result of a successful validation: the canonical URL,
// the normalized hostname, and the non-empty ordered set of IPv4
// addresses the host resolved to (or the literal itself for IP hosts).
// A descriptor is consumed immediately by the executor and never reused:
// DNS answers may change between calls, which is exactly why pinning
// happens per redirect iteration.
type Descriptor struct {
	URL  string
	Host string
	IPs  []string
}

// Validator applies rule lists to URLs. It is stateless per call and
// safe for concurrent use once configured.
type Validator struct {
	rules            *rules.List
	resolver         Resolver
	allowCredentials bool
}

// New creates a Validator over the given rule list. DNS resolution uses
// net.DefaultResolver unless SetResolver installs a test double.
func New(list *rules.List) *Validator {
	return &Validator{rules: list}
}

// SetResolver installs a custom DNS resolver (for testing).
func (v *Validator) SetResolver(r Resolver) {
	v.resolver = r
}

// SetAllowCredentials permits userinfo in URLs. Default is reject.
func (v *Validator) SetAllowCredentials(allow bool) {
	v.allowCredentials = allow
}

func (v *Validator) getResolver() Resolver {
	if v.resolver != nil {
		return v.resolver
	}
	return net.DefaultResolver
}

// Validate checks rawURL against the rule lists and resolves its host.
// The stages short-circuit in a fixed order: parse, credentials, scheme,
// port, host patterns, then address checks. A literal-IP host is checked
// directly against the ip rules, skipping DNS.
func (v *Validator) Validate(ctx context.Context, rawURL string) (*Descriptor, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrUnparsableURL, err)
	}
	if u.Hostname() == "" {
		return nil, ErrNoHost
	}

	if u.User != nil && !v.allowCredentials {
		return nil, ErrCredentials
	}

	scheme := strings.ToLower(u.Scheme)
	if v.rules.HasWhitelist(rules.Scheme) && !v.rules.InWhitelist(rules.Scheme, scheme) {
		return nil, ErrSchemeNotWhitelisted
	}
	if v.rules.InBlacklist(rules.Scheme, scheme) {
		return nil, ErrSchemeBlacklisted
	}

	// A missing port takes the scheme default, for named and IP-literal
	// hosts alike.
	port := u.Port()
	if port == "" {
		port = hostport.DefaultPort(scheme)
	}
	if v.rules.HasWhitelist(rules.Port) && !v.rules.InWhitelist(rules.Port, port) {
		return nil, ErrPortNotWhitelisted
	}
	if v.rules.InBlacklist(rules.Port, port) {
		return nil, ErrPortBlacklisted
	}

	host := canonicalHostname(u.Hostname())
	if v.rules.HasWhitelist(rules.Host) && !v.rules.InWhitelist(rules.Host, host) {
		return nil, ErrHostNotWhitelisted
	}
	if v.rules.InBlacklist(rules.Host, host) {
		return nil, ErrHostBlacklisted
	}

	var ips []string
	if ip := net.ParseIP(host); ip != nil {
		if err := v.checkAddress(ip); err != nil {
			return nil, err
		}
		ips = []string{ip.String()}
	} else {
		ips, err = v.resolveAndCheck(ctx, host)
		if err != nil {
			return nil, err
		}
	}

	return &Descriptor{
		URL:  canonicalURL(u, scheme, host),
		Host: host,
		IPs:  ips,
	}, nil
}

// resolveAndCheck resolves host to IPv4 addresses and checks every one
// against the built-in reserved ranges and the user ip rules. All
// addresses must pass: a single forbidden answer rejects the URL.
func (v *Validator) resolveAndCheck(ctx context.Context, host string) ([]string, error) {
	addrs, err := v.getResolver().LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrUnresolvableHost, err)
	}

	var ips []string
	for _, addr := range addrs {
		v4 := addr.IP.To4()
		if v4 == nil {
			continue // IPv4 resolution is forced; AAAA answers are ignored
		}
		if err := v.checkAddress(v4); err != nil {
			return nil, err
		}
		ips = append(ips, v4.String())
	}
	if len(ips) == 0 {
		return nil, ErrUnresolvableHost
	}
	return ips, nil
}

// checkAddress applies the address rules in fixed order: built-in
// reserved ranges, then the user blacklist, then the user whitelist.
// Blacklist membership always rejects, even for whitelisted addresses.
func (v *Validator) checkAddress(ip net.IP) error {
	if rules.IsReserved(ip) {
		return ErrAddressBlacklisted
	}
	lit := ip.String()
	if v.rules.InBlacklist(rules.IP, lit) {
		return ErrAddressBlacklisted
	}
	if v.rules.HasWhitelist(rules.IP) && !v.rules.InWhitelist(rules.IP, lit) {
		return ErrAddressNotWhitelisted
	}
	return nil
}

// canonicalHostname lowercases the hostname and converts international
// names to their ASCII (punycode) form before any rule is applied, so
// patterns match the name that will actually be resolved. Conversion
// failures fall back to the lowercased original; the resolver will then
// report the host as unresolvable.
func canonicalHostname(host string) string {
	host = hostport.CanonicalHost(host)
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		return ascii
	}
	return host
}

// canonicalURL rebuilds the URL with the normalized scheme and host.
// The explicit port is preserved as given; port defaulting is a rule
// concern, not a rewrite concern.
func canonicalURL(u *url.URL, scheme, host string) string {
	c := *u
	c.Scheme = scheme
	if p := u.Port(); p != "" {
		c.Host = hostport.Join(host, p)
	} else {
		c.Host = host
	}
	return c.String()
}
