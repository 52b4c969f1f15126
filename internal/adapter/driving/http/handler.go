// Package httphandler is the HTTP driving adapter: the GitHub webhook
// receiver plus the small JSON API operators use.
package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// defaultRunsLimit and maxRunsLimit bound GET /api/v1/runs.
const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// EventDispatcher hands a parsed webhook event to background processing.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev model.Event)
}

// Handler serves the webhook endpoint and the JSON API.
type Handler struct {
	events EventDispatcher
	secret []byte
	usage  driven.UsageStore
	logger *slog.Logger
}

// NewHandler creates a Handler. secret is the webhook HMAC secret.
func NewHandler(events EventDispatcher, secret []byte, usage driven.UsageStore, logger *slog.Logger) *Handler {
	return &Handler{
		events: events,
		secret: secret,
		usage:  usage,
		logger: logger,
	}
}

// RegisterRoutes registers the webhook, health and API routes on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /webhook", h.Webhook)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
}

// ApplyMiddleware wraps next with recovery (innermost) and request logging.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	wrapped := recoveryMiddleware(logger, next)
	return loggingMiddleware(logger, wrapped)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListRuns returns the most recent usage records, newest first. The optional
// "limit" query parameter caps the result size.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	records, err := h.usage.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRunResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}
