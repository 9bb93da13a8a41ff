// Package model contains domain models passed between layers.
package model

import "time"

// EventType names the kind of interaction event a client reports.
type EventType string

// Interaction event types accepted by /track.
const (
	EventMouse    EventType = "mouse"
	EventKeyboard EventType = "keyboard"
)

// PointerEvent is one pointer-move sample stamped with server receipt time.
type PointerEvent struct {
	X  float64
	Y  float64
	At time.Time
}

// KeyEvent is one key press stamped with server receipt time.
type KeyEvent struct {
	Key string
	At  time.Time
}

// Interaction is a single tracked event as it arrives from a client.
// Exactly one of the pointer or key fields is meaningful, selected by Type.
type Interaction struct {
	Type EventType
	X    float64
	Y    float64
	Key  string
	// EventID is an optional client-supplied idempotency key.
	EventID string
}

// Features is the fixed feature vector handed to the scorer.
type Features struct {
	MouseCount      int     `json:"mouse_count"`
	AvgMouseSpeed   float64 `json:"avg_mouse_speed"`
	KeystrokeCount  int     `json:"keystroke_count"`
	TypingSpeed     float64 `json:"typing_speed"`
	SessionDuration float64 `json:"session_duration"`
}

// ClientInfo describes the user agent that opened a session.
type ClientInfo struct {
	Device  string `json:"device"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Bot     bool   `json:"bot"`
}

// Snapshot is a consistent copy of a session's recorded events.
type Snapshot struct {
	SessionID string
	CreatedAt time.Time
	Pointer   []PointerEvent
	Keys      []KeyEvent
}
