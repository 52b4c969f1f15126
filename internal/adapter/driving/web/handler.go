// Package web serves the operator-facing HTML pages using templ components.
package web

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/pyautofix/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/pyautofix/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/pyautofix/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

const runsPageLimit = 100

// Handler renders the runs page from the usage ledger.
type Handler struct {
	usage      driven.UsageStore
	githubHost string
	logger     *slog.Logger
}

// NewHandler creates a Handler. githubHost is used to link pull requests.
func NewHandler(usage driven.UsageStore, githubHost string, logger *slog.Logger) *Handler {
	if githubHost == "" {
		githubHost = "github.com"
	}
	return &Handler{
		usage:      usage,
		githubHost: githubHost,
		logger:     logger,
	}
}

// Runs renders the most recent events.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	records, err := h.usage.ListRecent(r.Context(), runsPageLimit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := vm.RunsPageViewModel{
		Title: "Python Autofix runs",
		Runs:  make([]vm.RunViewModel, 0, len(records)),
		Limit: runsPageLimit,
	}
	for _, rec := range records {
		page.Runs = append(page.Runs, toRunViewModel(rec, h.githubHost))
	}

	layout := templates.Layout(page.Title, pages.Runs(page))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layout.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render runs page", "error", err)
	}
}

// staticFS returns the embedded stylesheet directory.
func staticFS() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
