package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/imgquota/adapters/hasher"
	"github.com/artpar/imgquota/adapters/metrics"
	"github.com/artpar/imgquota/pkg/jsonapi"
)

// ServiceKeyHeader carries the shared key callers present to the API.
const ServiceKeyHeader = "X-Service-Key"

func isInternalPath(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics" || strings.HasPrefix(path, "/swagger")
}

// NewLoggingMiddleware logs each request at debug level.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if isInternalPath(r.URL.Path) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewMetricsMiddleware records request counts and latency labelled by the
// matched route pattern, which keeps label cardinality bounded.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isInternalPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(r.Method, route, status, time.Since(start))
		})
	}
}

// NewServiceKeyMiddleware rejects requests without a valid service key.
// A verifier with no configured keys lets every request through.
func NewServiceKeyMiddleware(keys *hasher.KeyVerifier, m *metrics.Collector, logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keys.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(ServiceKeyHeader)
			reason := ""
			switch {
			case key == "":
				reason = "missing_service_key"
			case !keys.Verify(key):
				reason = "invalid_service_key"
			}

			if reason != "" {
				if m != nil {
					m.AuthFailures.WithLabelValues(reason).Inc()
				}
				logger.Warn().
					Str("reason", reason).
					Str("remote_ip", r.RemoteAddr).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("service key rejected")
				jsonapi.WriteError(w, jsonapi.ErrUnauthorized(reason, ServiceKeyHeader).
					ID(middleware.GetReqID(r.Context())).
					Build())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
