package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fetchguard/fetchguard/internal/platform/hostport"
)

// TransportOptions tunes the net/http-backed transport.
type TransportOptions struct {
	// TimeoutMS bounds the whole request; 0 means no deadline beyond ctx.
	TimeoutMS int

	// ConnectTimeoutMS bounds the dial.
	ConnectTimeoutMS int

	// MaxResponseBytes caps how much of the body is read; 0 = 1 MiB.
	MaxResponseBytes int64

	// InsecureSkipVerify disables TLS verification. Test use only.
	InsecureSkipVerify bool

	// UserAgent is sent when non-empty.
	UserAgent string
}

// HTTPTransport implements Transport over net/http. Automatic redirect
// following is disabled; the dialer honors one-shot pins and dials tcp4
// only. Proxy environment variables are ignored so a proxy cannot route
// around the pinned address.
type HTTPTransport struct {
	client *http.Client
	opts   TransportOptions

	mu       sync.Mutex
	pinnedTo string   // host:port authority the pin applies to
	pinned   []string // validated addresses, tried in order
}

// NewHTTPTransport builds a transport for one logical request chain.
func NewHTTPTransport(opts TransportOptions) *HTTPTransport {
	if opts.MaxResponseBytes == 0 {
		opts.MaxResponseBytes = 1 << 20
	}

	t := &HTTPTransport{opts: opts}

	dialer := &net.Dialer{
		Timeout: time.Duration(opts.ConnectTimeoutMS) * time.Millisecond,
	}

	inner := &http.Transport{
		Proxy:       nil,
		DialContext: t.dial(dialer),
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify,
		},
		DisableKeepAlives: true,
	}

	t.client = &http.Client{
		Transport: inner,
		Timeout:   time.Duration(opts.TimeoutMS) * time.Millisecond,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return t
}

// Pin maps host:port to addrs for the next request only.
func (t *HTTPTransport) Pin(host, port string, addrs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pinnedTo = hostport.Join(host, port)
	t.pinned = append([]string(nil), addrs...)
}

// SupportsIPv4Only reports that this engine forces IPv4: every dial uses
// the tcp4 network.
func (t *HTTPTransport) SupportsIPv4Only() bool {
	return true
}

// dial returns a DialContext that redirects pinned authorities to their
// validated addresses and forces IPv4 for everything else.
func (t *HTTPTransport) dial(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		t.mu.Lock()
		pinnedTo, pinned := t.pinnedTo, t.pinned
		t.mu.Unlock()

		if pinnedTo != "" && addr == pinnedTo && len(pinned) > 0 {
			_, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			var lastErr error
			for _, ip := range pinned {
				conn, err := dialer.DialContext(ctx, "tcp4", hostport.Join(ip, port))
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			return nil, lastErr
		}

		return dialer.DialContext(ctx, "tcp4", addr)
	}
}

// clearPin drops the one-shot pin after a request consumed it.
func (t *HTTPTransport) clearPin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pinnedTo = ""
	t.pinned = nil
}

// Execute performs a single GET for url. Redirect responses are returned
// as-is with their absolute target reported; the executor decides whether
// to follow.
func (t *HTTPTransport) Execute(ctx context.Context, rawURL string) (*Result, error) {
	defer t.clearPin()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if t.opts.UserAgent != "" {
		req.Header.Set("User-Agent", t.opts.UserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.opts.MaxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > t.opts.MaxResponseBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", t.opts.MaxResponseBytes)
	}

	res := &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	if IsRedirect(resp.StatusCode) {
		if loc, err := resp.Location(); err == nil {
			res.RedirectTarget = loc.String()
		}
	}

	return res, nil
}
