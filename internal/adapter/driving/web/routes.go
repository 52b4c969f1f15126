package web

import "net/http"

// RegisterRoutes registers the HTML pages and their static assets on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS())))

	mux.HandleFunc("GET /runs", h.Runs)
	mux.Handle("GET /{$}", http.RedirectHandler("/runs", http.StatusFound))
}
