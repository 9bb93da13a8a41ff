package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/model"
)

// ErrStatus is returned for any non-2xx response.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the HTTP status of a failed call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v %d: %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Client talks to a quizgate server.
type Client struct {
	base      string
	client    *http.Client
	userAgent string
}

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base:      strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		userAgent: "quizgate-simulate/1.0",
	}
}

// VerifyResult is the subset of POST /verify the simulator reads.
type VerifyResult struct {
	Action      string          `json:"action"`
	Probability float64         `json:"probability"`
	RiskLevel   string          `json:"risk_level"`
	Degraded    bool            `json:"degraded"`
	CaptchaType string          `json:"captcha_type"`
	Captcha     *challenge.View `json:"captcha"`
}

// QuizResult is the subset of POST /verify/quiz the simulator reads.
type QuizResult struct {
	Verified      bool   `json:"verified"`
	Reason        string `json:"reason"`
	AccessGranted bool   `json:"access_granted"`
	PassToken     string `json:"pass_token"`
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// StartSession opens a session and returns its ID.
func (c *Client) StartSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/session/start", nil, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", errors.New("empty session id")
	}
	return out.SessionID, nil
}

// Track sends one interaction with a fresh event ID.
func (c *Client) Track(ctx context.Context, sessionID string, s Step) error {
	body := map[string]any{
		"session_id": sessionID,
		"type":       string(s.Type),
		"event_id":   uuid.NewString(),
	}
	if s.Type == model.EventMouse {
		body["x"], body["y"] = s.X, s.Y
	} else {
		body["key"] = s.Key
	}
	return c.do(ctx, http.MethodPost, "/track", body, nil)
}

// Verify asks for a risk decision.
func (c *Client) Verify(ctx context.Context, sessionID string) (VerifyResult, error) {
	var out VerifyResult
	err := c.do(ctx, http.MethodPost, "/verify", map[string]string{"session_id": sessionID}, &out)
	return out, err
}

// VerifyQuiz submits a challenge response.
func (c *Client) VerifyQuiz(ctx context.Context, sessionID string, resp challenge.Response) (QuizResult, error) {
	var out QuizResult
	body := map[string]any{"session_id": sessionID, "response": resp}
	err := c.do(ctx, http.MethodPost, "/verify/quiz", body, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
