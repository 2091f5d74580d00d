// internal/api/middleware.go
package api

import (
	"fmt"
	"net/http"
	"time"

	commonerrors "ai-council/internal/common/errors"
	"ai-council/internal/council/orchestrator"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument assigns a request id, opens a span, recovers panics and records
// the outcome in logs and metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		ctx := orchestrator.WithRequestID(r.Context(), requestID)
		ctx, span := s.obs.Tracer().Start(ctx, "HTTP "+r.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				s.errors.WriteError(rec, r, commonerrors.NewInternalError(fmt.Errorf("panic: %v", p)))
			}

			endpoint := r.Pattern
			if endpoint == "" {
				endpoint = "unmatched"
			}
			elapsed := time.Since(start)
			span.SetName(endpoint)
			span.SetAttributes(
				attribute.String("http.route", endpoint),
				attribute.Int("http.status_code", rec.status),
			)
			s.obs.RecordRequest(ctx, endpoint, rec.status, elapsed)
			s.logger.Info("request handled", map[string]interface{}{
				"requestId":  requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"durationMs": elapsed.Milliseconds(),
			})
		}()

		next.ServeHTTP(rec, r)
	})
}
