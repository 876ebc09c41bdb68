package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fetchguard/fetchguard/internal/components/fetch"
	"github.com/fetchguard/fetchguard/internal/components/validate"
	"github.com/fetchguard/fetchguard/internal/platform/logutil"
	"github.com/fetchguard/fetchguard/internal/platform/metrics"
	"github.com/fetchguard/fetchguard/internal/platform/store"
)

// Fetcher runs one guarded fetch. Implemented by fetch.Executor.
type Fetcher interface {
	Execute(ctx context.Context, url string) ([]byte, error)
}

// FetcherFactory builds a fresh Fetcher per request. Transport handles
// are single-use per logical request chain, so the handler never shares
// one across requests.
type FetcherFactory func() Fetcher

// FetchHandler serves POST /fetch: it runs the guarded fetch and relays
// the final body, recording the decision in the audit store.
type FetchHandler struct {
	newFetcher FetcherFactory
	audit      store.Driver // nil disables auditing
	logger     *slog.Logger
}

// NewFetchHandler creates a FetchHandler.
func NewFetchHandler(factory FetcherFactory, audit store.Driver, logger *slog.Logger) *FetchHandler {
	return &FetchHandler{newFetcher: factory, audit: audit, logger: logutil.NoopIfNil(logger)}
}

type fetchRequest struct {
	URL string `json:"url"`
}

// ServeHTTP handles POST /fetch.
func (h *FetchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		WriteBadRequest(w, ReasonMissingField, "url is required")
		return
	}

	start := time.Now()
	body, err := h.newFetcher().Execute(r.Context(), req.URL)
	duration := time.Since(start)
	metrics.FetchDuration.Observe(duration.Seconds())

	switch {
	case err == nil:
		h.record(r.Context(), req.URL, store.OutcomeAllowed, "", duration)
		metrics.FetchesTotal.WithLabelValues(store.OutcomeAllowed).Inc()
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		w.Write(body)

	case validate.IsInvalidURL(err):
		h.record(r.Context(), req.URL, store.OutcomeBlocked, err.Error(), duration)
		metrics.FetchesTotal.WithLabelValues(store.OutcomeBlocked).Inc()
		metrics.BlockedTotal.WithLabelValues(err.Error()).Inc()
		WriteForbidden(w, ReasonBlockedByPolicy, err.Error())

	case errors.Is(err, fetch.ErrRedirectLimitExceeded):
		h.record(r.Context(), req.URL, store.OutcomeFailed, err.Error(), duration)
		metrics.FetchesTotal.WithLabelValues(store.OutcomeFailed).Inc()
		WriteError(w, http.StatusBadGateway, ReasonRedirectLimit, err.Error())

	case fetch.IsTransportError(err):
		h.record(r.Context(), req.URL, store.OutcomeFailed, err.Error(), duration)
		metrics.FetchesTotal.WithLabelValues(store.OutcomeFailed).Inc()
		WriteError(w, http.StatusBadGateway, ReasonUpstreamError, err.Error())

	default:
		h.logger.Error("fetch failed", "url", req.URL, "error", err)
		h.record(r.Context(), req.URL, store.OutcomeFailed, err.Error(), duration)
		metrics.FetchesTotal.WithLabelValues(store.OutcomeFailed).Inc()
		WriteError(w, http.StatusInternalServerError, ReasonInternalError, "internal error")
	}
}

// record appends an audit entry. Audit failures are logged, never
// surfaced: the fetch outcome already happened.
func (h *FetchHandler) record(ctx context.Context, url, outcome, reason string, d time.Duration) {
	if h.audit == nil {
		return
	}
	id, err := uuid.NewV7()
	if err != nil {
		h.logger.Error("audit id generation failed", "error", err)
		return
	}
	rec := &store.FetchRecord{
		ID:         id.String(),
		URL:        url,
		Outcome:    outcome,
		Reason:     reason,
		DurationMS: d.Milliseconds(),
		CreatedAt:  time.Now().UnixMilli(),
	}
	if err := h.audit.RecordFetch(ctx, rec); err != nil {
		h.logger.Error("audit write failed", "url", url, "error", err)
	}
}
