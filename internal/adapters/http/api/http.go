// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/quizgate/internal/app"
	repository "github.com/okian/quizgate/internal/adapters/repository"
	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/internal/domain/pass"
	"github.com/okian/quizgate/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StartSession(ctx context.Context, userAgent string) (repository.SessionInfo, error)
	Track(ctx context.Context, sessionID string, in model.Interaction) (bool, error)
	Assess(ctx context.Context, sessionID string) (service.Decision, error)
	Describe(ch challenge.Challenge) challenge.View
	VerifyChallenge(ctx context.Context, sessionID string, resp challenge.Response) (service.Verification, error)
	ValidatePass(ctx context.Context, token string) (pass.Pass, error)
	GetStats(ctx context.Context) (service.Stats, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	sessionHandler *SessionHandler
	verifyHandler  *VerifyHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...HealthOption) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(opts...),
		statsHandler:   NewStatsHandler(deps),
		sessionHandler: NewSessionHandler(deps),
		verifyHandler:  NewVerifyHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", route("health", http.MethodGet, s.healthHandler.HandleHealth))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", route("stats", http.MethodGet, s.statsHandler.HandleStats))
	mux.HandleFunc("/session/start", route("session_start", http.MethodPost, s.sessionHandler.HandleStart))
	mux.HandleFunc("/track", route("track", http.MethodPost, s.sessionHandler.HandleTrack))
	mux.HandleFunc("/verify", route("verify", http.MethodPost, s.verifyHandler.HandleVerify))
	mux.HandleFunc("/verify/quiz", route("verify_quiz", http.MethodPost, s.verifyHandler.HandleVerifyQuiz))
	mux.HandleFunc("/pass/validate", route("pass_validate", http.MethodPost, s.verifyHandler.HandleValidatePass))
}

// route composes the standard middleware chain, outermost first: metrics,
// panic recovery, method check.
func route(endpoint, method string, h http.HandlerFunc) http.HandlerFunc {
	return MetricsMiddleware(Recover(endpoint, AllowMethod(method, h)), endpoint)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service sentinels to a status and stable code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		err = Wrap(op, err)
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidSession):
		return http.StatusBadRequest, "invalid_session"
	case errors.Is(err, service.ErrNoOutstandingChallenge):
		return http.StatusBadRequest, "no_outstanding_challenge"
	case errors.Is(err, service.ErrMalformedRequest), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "malformed_request"
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrEventLimit):
		return http.StatusTooManyRequests, "event_limit"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decode reads a JSON body into v. An empty body is malformed.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
