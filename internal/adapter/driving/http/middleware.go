package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// GitHub delivery headers. Present only on webhook requests.
const (
	headerDelivery = "X-GitHub-Delivery"
	headerEvent    = "X-GitHub-Event"
)

// statusWriter records the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// requestAttrs are the log attributes identifying r. Webhook deliveries are
// tagged with their delivery id and event type so a request line can be
// matched with the processing logs of the same delivery.
func requestAttrs(r *http.Request) []any {
	attrs := []any{"method", r.Method, "path", r.URL.Path}
	if id := r.Header.Get(headerDelivery); id != "" {
		attrs = append(attrs, "delivery", id, "event", r.Header.Get(headerEvent))
	}
	return attrs
}

// loggingMiddleware logs one line per request. Health probes log at debug.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		if r.URL.Path == "/healthz" && sw.status == http.StatusOK {
			level = slog.LevelDebug
		}
		attrs := append(requestAttrs(r),
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
		logger.Log(r.Context(), level, "http request", attrs...)
	})
}

// recoveryMiddleware turns a handler panic into a logged 500.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Log(context.WithoutCancel(r.Context()), slog.LevelError, "panic recovered",
					append(requestAttrs(r), "panic", v)...)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
