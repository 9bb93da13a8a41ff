package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/quizgate/internal/app"
	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/model"
)

// VerifyHandler handles risk assessment, challenge answers and passes.
type VerifyHandler struct {
	deps Dependencies
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(deps Dependencies) *VerifyHandler {
	return &VerifyHandler{deps: deps}
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type verifyResponse struct {
	Action      string          `json:"action"`
	Probability float64         `json:"probability"`
	RiskLevel   string          `json:"risk_level"`
	Message     string          `json:"message"`
	Features    model.Features  `json:"features"`
	Degraded    bool            `json:"degraded,omitempty"`
	ErrorCode   string          `json:"error_code,omitempty"`
	CaptchaType string          `json:"captcha_type,omitempty"`
	Captcha     *challenge.View `json:"captcha,omitempty"`
}

// HandleVerify handles POST /verify requests.
func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify"
	var req sessionRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeServiceError(w, op, NewKind(op, service.ErrInvalidSession))
		return
	}

	d, err := h.deps.Assess(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	a := d.Assessment
	resp := verifyResponse{
		Action:      string(a.Action),
		Probability: a.Probability,
		RiskLevel:   a.Tier.String(),
		Message:     d.Message,
		Features:    a.Features,
		Degraded:    a.Degraded,
	}
	if errors.Is(d.Cause, service.ErrScorerUnavailable) {
		resp.ErrorCode = "scorer_unavailable"
	}
	if d.Challenge != nil {
		view := h.deps.Describe(d.Challenge)
		resp.CaptchaType = string(view.Type)
		resp.Captcha = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

type quizRequest struct {
	SessionID string              `json:"session_id"`
	Response  *challenge.Response `json:"response"`
}

type quizResponse struct {
	challenge.Result
	ResponseTime  float64    `json:"response_time"`
	Message       string     `json:"message"`
	AccessGranted bool       `json:"access_granted"`
	PassToken     string     `json:"pass_token,omitempty"`
	PassExpiresAt *time.Time `json:"pass_expires_at,omitempty"`
}

// HandleVerifyQuiz handles POST /verify/quiz requests.
func (h *VerifyHandler) HandleVerifyQuiz(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify_quiz"
	var req quizRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeServiceError(w, op, NewKind(op, service.ErrInvalidSession))
		return
	}
	if req.Response == nil {
		writeServiceError(w, op, WrapKind(op, ErrBadRequest, errors.New("missing response")))
		return
	}

	v, err := h.deps.VerifyChallenge(r.Context(), req.SessionID, *req.Response)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	resp := quizResponse{
		Result:        v.Result,
		ResponseTime:  v.Elapsed.Seconds(),
		Message:       v.Message,
		AccessGranted: v.AccessGranted,
		PassToken:     v.PassToken,
	}
	if v.PassToken != "" {
		exp := v.PassExpiresAt
		resp.PassExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}

type passRequest struct {
	Token string `json:"token"`
}

type passResponse struct {
	Valid     bool       `json:"valid"`
	SessionID string     `json:"session_id,omitempty"`
	Challenge string     `json:"challenge,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// HandleValidatePass handles POST /pass/validate requests. Invalid tokens
// are a normal answer, not an error.
func (h *VerifyHandler) HandleValidatePass(w http.ResponseWriter, r *http.Request) {
	const op = "api.pass_validate"
	var req passRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}

	p, err := h.deps.ValidatePass(r.Context(), req.Token)
	switch {
	case errors.Is(err, service.ErrInvalidPass):
		writeJSON(w, http.StatusOK, passResponse{Valid: false, Reason: err.Error()})
		return
	case err != nil:
		writeServiceError(w, op, err)
		return
	}
	exp := p.ExpiresAt
	writeJSON(w, http.StatusOK, passResponse{
		Valid:     true,
		SessionID: p.SessionID,
		Challenge: p.Challenge,
		ExpiresAt: &exp,
	})
}
