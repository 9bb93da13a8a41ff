package service

import "errors"

// Sentinel kinds for service errors. Callers map them with errors.Is.
var (
	ErrInvalidSession         = errors.New("invalid session")
	ErrNoOutstandingChallenge = errors.New("no outstanding challenge")
	ErrMalformedRequest       = errors.New("malformed request")
	ErrScorerUnavailable      = errors.New("scorer unavailable")
	ErrRateLimited            = errors.New("rate limited")
	ErrEventLimit             = errors.New("event limit reached")
	ErrInvalidPass            = errors.New("invalid pass")
	ErrNotStarted             = errors.New("service not started")
)
