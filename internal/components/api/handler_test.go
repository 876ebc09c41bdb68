package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fetchguard/fetchguard/internal/components/api"
	"github.com/fetchguard/fetchguard/internal/components/fetch"
	"github.com/fetchguard/fetchguard/internal/components/validate"
	"github.com/fetchguard/fetchguard/internal/platform/store"
)

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Execute(_ context.Context, _ string) ([]byte, error) {
	return f.body, f.err
}

type memAudit struct {
	mu   sync.Mutex
	recs []*store.FetchRecord
}

func (m *memAudit) Init(context.Context) error { return nil }
func (m *memAudit) Close() error               { return nil }
func (m *memAudit) Name() string               { return "mem" }

func (m *memAudit) RecordFetch(_ context.Context, rec *store.FetchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memAudit) ListFetches(_ context.Context, _ int) ([]*store.FetchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recs, nil
}

func postFetch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/fetch", strings.NewReader(body))
	h.ServeHTTP(w, r)
	return w
}

func TestFetchHandlerSuccess(t *testing.T) {
	audit := &memAudit{}
	h := api.NewFetchHandler(func() api.Fetcher {
		return &fakeFetcher{body: []byte("payload")}
	}, audit, nil)

	w := postFetch(t, h, `{"url":"http://example.com/"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "payload" {
		t.Errorf("body = %q", w.Body.String())
	}

	if len(audit.recs) != 1 || audit.recs[0].Outcome != store.OutcomeAllowed {
		t.Errorf("audit = %+v, want one allowed record", audit.recs)
	}
	if audit.recs[0].ID == "" {
		t.Error("audit record must carry an id")
	}
}

func TestFetchHandlerBlocked(t *testing.T) {
	audit := &memAudit{}
	h := api.NewFetchHandler(func() api.Fetcher {
		return &fakeFetcher{err: validate.ErrAddressBlacklisted}
	}, audit, nil)

	w := postFetch(t, h, `{"url":"http://127.0.0.1/"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}

	var env api.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Error.ReasonCode != api.ReasonBlockedByPolicy {
		t.Errorf("reason = %q", env.Error.ReasonCode)
	}
	if env.Error.Message != "Host resolves to a blacklisted address." {
		t.Errorf("message = %q, want the stable validation reason", env.Error.Message)
	}

	if len(audit.recs) != 1 || audit.recs[0].Outcome != store.OutcomeBlocked {
		t.Errorf("audit = %+v, want one blocked record", audit.recs)
	}
}

func TestFetchHandlerRedirectLimit(t *testing.T) {
	h := api.NewFetchHandler(func() api.Fetcher {
		return &fakeFetcher{err: fetch.ErrRedirectLimitExceeded}
	}, nil, nil)

	w := postFetch(t, h, `{"url":"http://example.com/"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
	var env api.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Error.ReasonCode != api.ReasonRedirectLimit {
		t.Errorf("reason = %q", env.Error.ReasonCode)
	}
}

func TestFetchHandlerTransportFailure(t *testing.T) {
	h := api.NewFetchHandler(func() api.Fetcher {
		return &fakeFetcher{err: fmt.Errorf("%w: dial tcp: i/o timed out", fetch.ErrTransport)}
	}, nil, nil)

	w := postFetch(t, h, `{"url":"http://example.com/"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
	var env api.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Error.ReasonCode != api.ReasonUpstreamError {
		t.Errorf("reason = %q", env.Error.ReasonCode)
	}
	if !strings.Contains(env.Error.Message, "timed out") {
		t.Errorf("native transport text must pass through, got %q", env.Error.Message)
	}
}

func TestFetchHandlerBadRequests(t *testing.T) {
	h := api.NewFetchHandler(func() api.Fetcher { return &fakeFetcher{} }, nil, nil)

	if w := postFetch(t, h, "{not json"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid json: status = %d", w.Code)
	}
	if w := postFetch(t, h, `{"url":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty url: status = %d", w.Code)
	}
}
