package fetch

import (
	"context"
	"net/http"
)

// Transport is the narrow boundary to the underlying HTTP engine. The
// executor never talks to sockets directly: it validates, pins, and asks
// the transport to run exactly one request with automatic redirect
// following disabled and the body returned rather than emitted.
//
// A Transport handle is single-use per logical request chain; the
// executor is the only writer of its pin state.
type Transport interface {
	// Pin maps host:port to the given addresses for the next request
	// only. The engine must connect to one of these addresses instead of
	// resolving host again, defeating DNS rebinding between validation
	// and connection time.
	Pin(host, port string, addrs []string)

	// SupportsIPv4Only reports whether the engine can force IPv4
	// resolution for unpinned lookups.
	SupportsIPv4Only() bool

	// Execute performs a single request and reports its outcome, or the
	// engine's native failure (connection, timeout, TLS).
	Execute(ctx context.Context, url string) (*Result, error)
}

// Result is the outcome of a single transport execution.
type Result struct {
	// StatusCode is the final HTTP status of this hop.
	StatusCode int

	// RedirectTarget is the absolute redirect location when StatusCode
	// is a redirect code, empty otherwise.
	RedirectTarget string

	// Header carries the response headers for output-headers mode.
	Header http.Header

	// Body is the full response body.
	Body []byte
}

// redirectStatuses are the statuses the executor treats as redirects.
var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true, // 301
	http.StatusFound:             true, // 302
	http.StatusSeeOther:          true, // 303
	http.StatusTemporaryRedirect: true, // 307
	http.StatusPermanentRedirect: true, // 308
}

// IsRedirect reports whether code is one of {301, 302, 303, 307, 308}.
func IsRedirect(code int) bool {
	return redirectStatuses[code]
}
