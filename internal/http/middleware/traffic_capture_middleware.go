package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/site-analyzer/portal/internal/domain"
	"github.com/site-analyzer/portal/internal/observability"
	"github.com/site-analyzer/portal/internal/realtime"
	"github.com/site-analyzer/portal/internal/repository"
)

// TrafficCapture records every request/response pair as a TrafficEvent,
// persists it, and forwards it to the broadcast gateway in the order
// responses complete.
//
// Persistence is fail-open: a storage error is logged and swallowed, the
// caller's response is unaffected, and the event is still broadcast so live
// viewers see traffic even when the durable log is down.
func TrafficCapture(logger *slog.Logger, repo repository.TrafficRepository, gateway *realtime.Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timestamp := time.Now().UTC()
			ip := clientIPKey(r)
			method := r.Method
			endpoint := r.URL.Path

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := domain.TrafficEvent{
				Timestamp:  timestamp,
				IP:         ip,
				Method:     method,
				Endpoint:   endpoint,
				StatusCode: status,
			}

			if err := repo.Append(&event); err != nil {
				observability.RecordTrafficCapture(r.Context(), "persist_error")
				logger.Error("failed to persist traffic event",
					"method", method,
					"endpoint", endpoint,
					"error", err,
				)
			} else {
				observability.RecordTrafficCapture(r.Context(), "persisted")
			}

			gateway.Publish(event)
		})
	}
}
