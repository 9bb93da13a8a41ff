package api

import (
	"net/http"
	"time"
)

// Health payload defaults.
const (
	DefaultSystemName = "quizgate"
	DefaultVersion    = "dev"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	system   string
	version  string
	features []string
	now      func() time.Time
}

// HealthOption configures a HealthHandler.
type HealthOption func(*HealthHandler)

// WithVersion sets the version reported by /health.
func WithVersion(version string) HealthOption {
	return func(h *HealthHandler) {
		if version != "" {
			h.version = version
		}
	}
}

// WithFeatures sets the feature list reported by /health.
func WithFeatures(features ...string) HealthOption {
	return func(h *HealthHandler) {
		h.features = append([]string(nil), features...)
	}
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		system:   DefaultSystemName,
		version:  DefaultVersion,
		features: []string{"Behavior Scoring", "Quiz Challenges", "Adaptive Risk", "Access Passes"},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type healthResponse struct {
	Status    string   `json:"status"`
	Timestamp float64  `json:"timestamp"`
	System    string   `json:"system"`
	Version   string   `json:"version"`
	Features  []string `json:"features"`
}

// HandleHealth handles GET /health requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		System:    h.system,
		Version:   h.version,
		Features:  h.features,
	})
}
