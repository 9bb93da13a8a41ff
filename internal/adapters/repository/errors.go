package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrNotFound         = errors.New("session not found")
	ErrNoChallenge      = errors.New("no outstanding challenge")
	ErrRateLimited      = errors.New("track rate exceeded")
	ErrEventLimit       = errors.New("session event limit reached")
	ErrUnknownEventType = errors.New("unknown event type")
)
