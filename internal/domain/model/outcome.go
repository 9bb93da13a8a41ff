package model

import "time"

// OutcomeKind distinguishes the telemetry records flowing through the queue.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeAssessed OutcomeKind = iota
	OutcomeChallengeIssued
	OutcomeVerified
)

// String returns the log name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAssessed:
		return "assessed"
	case OutcomeChallengeIssued:
		return "challenge_issued"
	case OutcomeVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Outcome is a telemetry record emitted by the service after a state
// transition. Workers fold outcomes into the telemetry ledger.
type Outcome struct {
	Kind      OutcomeKind
	SessionID string
	Tier      Tier
	Degraded  bool
	// Challenge is the challenge kind name for issue and verify outcomes.
	Challenge string
	Passed    bool
	Elapsed   time.Duration
	Score     int
	Total     int
	At        time.Time
}
