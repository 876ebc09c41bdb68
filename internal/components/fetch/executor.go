// Package fetch runs validated HTTP fetches. The executor drives the
// validate, pin, execute, inspect loop: every URL, including every
// redirect target, is re-validated before the transport is allowed to
// connect, and the connection is pinned to the addresses that passed
// that iteration's checks.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fetchguard/fetchguard/internal/components/validate"
	"github.com/fetchguard/fetchguard/internal/platform/hostport"
)

var (
	// ErrTransport wraps the engine's native failure text (connection
	// refused, timed out, TLS). The executor never retries.
	ErrTransport = errors.New("transport failure")

	// ErrRedirectLimitExceeded is returned when a redirect chain exceeds
	// the configured bound. The message text is part of the contract.
	ErrRedirectLimitExceeded = errors.New("Redirect limit exceeded.")
)

// IsTransportError reports whether err came from the underlying engine
// rather than from validation.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// Executor owns a transport handle and a validator and performs safe
// fetches. Execution state (current URL, redirect count) is call-local;
// an Executor carries no state between Execute calls, but the transport
// handle is assumed single-use per logical request, so prefer one
// Executor per call when fetching concurrently.
type Executor struct {
	validator *validate.Validator
	transport Transport

	followRedirects bool
	redirectLimit   int
	outputHeaders   bool
}

// New creates an Executor. Redirect following is off by default; when
// enabled, the default limit 0 means unlimited.
func New(v *validate.Validator, t Transport) *Executor {
	return &Executor{validator: v, transport: t}
}

// SetFollowRedirects enables or disables following of redirect responses.
func (e *Executor) SetFollowRedirects(follow bool) {
	e.followRedirects = follow
}

// SetRedirectLimit bounds the redirect chain per call: a limit of n
// fails a chain at its nth redirect response, so up to n-1 hops are
// followed. Zero means unlimited when following is enabled.
func (e *Executor) SetRedirectLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("redirect limit must be >= 0, got %d", limit)
	}
	e.redirectLimit = limit
	return nil
}

// SetOutputHeaders makes Execute return the status line and headers in
// front of the body, curl -i style.
func (e *Executor) SetOutputHeaders(on bool) {
	e.outputHeaders = on
}

// Execute fetches url, re-validating and re-pinning on every redirect
// hop. It returns the final body (or full response in output-headers
// mode), or an error; never a partial body from an interrupted chain.
func (e *Executor) Execute(ctx context.Context, rawURL string) ([]byte, error) {
	// Validation approves IPv4 addresses only; an engine that cannot
	// force IPv4 could connect over an unvalidated AAAA answer.
	if !e.transport.SupportsIPv4Only() {
		return nil, fmt.Errorf("%w: transport cannot force IPv4 resolution", ErrTransport)
	}

	current := rawURL
	redirects := 0

	for {
		desc, err := e.validator.Validate(ctx, current)
		if err != nil {
			return nil, err
		}

		// Pin the addresses checked this iteration. ips may differ
		// between iterations even for the same host; the connection must
		// use an address that was actually validated now.
		u, err := url.Parse(desc.URL)
		if err != nil {
			return nil, fmt.Errorf("%w (%v)", validate.ErrUnparsableURL, err)
		}
		e.transport.Pin(desc.Host, hostport.EffectivePort(u), desc.IPs)

		res, err := e.transport.Execute(ctx, desc.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		if !e.followRedirects || !IsRedirect(res.StatusCode) {
			if e.outputHeaders {
				return formatWithHeaders(res), nil
			}
			return res.Body, nil
		}

		// A limit of n fails the chain at its nth redirect response:
		// following is allowed only while redirects+1 < limit.
		if e.redirectLimit != 0 && redirects+1 >= e.redirectLimit {
			return nil, ErrRedirectLimitExceeded
		}
		if res.RedirectTarget == "" {
			return nil, fmt.Errorf("%w: redirect status %d without a location", ErrTransport, res.StatusCode)
		}
		redirects++
		current = res.RedirectTarget
	}
}

// formatWithHeaders renders a full response: status line, headers, blank
// line, body.
func formatWithHeaders(res *Result) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", res.StatusCode, http.StatusText(res.StatusCode))
	if res.Header != nil {
		res.Header.Write(&b)
	}
	b.WriteString("\r\n")
	b.Write(res.Body)
	return b.Bytes()
}
