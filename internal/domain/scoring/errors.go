package scoring

import "errors"

// Sentinel errors for scoring.
var (
	// ErrUnavailable wraps every failure of a guarded scorer: upstream
	// error, timeout, or open breaker.
	ErrUnavailable = errors.New("scorer unavailable")
	// ErrInvalidProbability is returned when a scorer produces a value
	// outside [0, 1].
	ErrInvalidProbability = errors.New("probability out of range")
)
