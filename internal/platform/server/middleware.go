package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/fetchguard/fetchguard/internal/components/api"
)

// unprotectedPaths bypass bearer auth. Health and metrics stay reachable
// for probes and scrapers even when auth is on.
var unprotectedPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// loggingMiddleware writes one access log line per request using slog.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware enforces bearer token authentication. An empty token
// hash in the config disables auth entirely.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Auth.TokenHash == "" || unprotectedPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Auth.TokenHash), []byte(token)); err != nil {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken gets the token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
