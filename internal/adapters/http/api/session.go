package api

import (
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/quizgate/internal/app"
	"github.com/okian/quizgate/internal/domain/model"
)

// SessionHandler handles session start and interaction tracking.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type startResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// HandleStart handles POST /session/start requests.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_start"
	sess, err := h.deps.StartSession(r.Context(), r.UserAgent())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{
		Success:   true,
		SessionID: sess.ID,
		Message:   service.MessageSessionStarted,
	})
}

// trackRequest mirrors the OpenAPI schema for POST /track.
type trackRequest struct {
	SessionID string   `json:"session_id"`
	Type      string   `json:"type"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Key       string   `json:"key"`
	EventID   string   `json:"event_id"`
}

func (t trackRequest) validate() error {
	switch {
	case strings.TrimSpace(t.SessionID) == "":
		return errors.New("missing session_id")
	case t.Type != string(model.EventMouse) && t.Type != string(model.EventKeyboard):
		return errors.New("type must be mouse or keyboard")
	case t.Type == string(model.EventMouse) && (t.X == nil || t.Y == nil):
		return errors.New("mouse events require x and y")
	}
	return nil
}

func (t trackRequest) interaction() model.Interaction {
	in := model.Interaction{Type: model.EventType(t.Type), Key: t.Key, EventID: t.EventID}
	if t.X != nil {
		in.X = *t.X
	}
	if t.Y != nil {
		in.Y = *t.Y
	}
	return in
}

type trackResponse struct {
	Success   bool `json:"success"`
	Duplicate bool `json:"duplicate"`
}

// HandleTrack handles POST /track requests.
func (h *SessionHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	const op = "api.track"
	var req trackRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	if err := req.validate(); err != nil {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	dup, err := h.deps.Track(r.Context(), req.SessionID, req.interaction())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, trackResponse{Success: true, Duplicate: dup})
}
