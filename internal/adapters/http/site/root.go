// Package site serves the HTML home page.
package site

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/quizgate/internal/app"
)

// Error constants
var (
	ErrRender = errors.New("home page render failed")
)

// StatsProvider supplies the counters shown on the home page.
type StatsProvider interface {
	GetStats(ctx context.Context) (service.Stats, error)
}

// Register attaches the home page to mux at /.
func Register(_ context.Context, mux *http.ServeMux, stats StatsProvider) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", NewRootHandler(stats))
}

// RootHandler handles root path requests
type RootHandler struct {
	stats StatsProvider
}

// NewRootHandler creates a new root handler
func NewRootHandler(stats StatsProvider) *RootHandler {
	return &RootHandler{stats: stats}
}

type pageData struct {
	Stats service.Stats
}

// ServeHTTP renders the home page for GET / and 404s every other path.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		http.Error(w, ErrRender.Error()+": "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTemplate.Execute(w, pageData{Stats: stats}); err != nil {
		http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
	}
}
