package model

// Tier is a discrete risk bucket derived from a bot probability.
type Tier int

// Risk tiers, ordered by severity.
const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierCritical
)

// String returns the wire name of the tier.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseTier is the inverse of Tier.String.
func ParseTier(s string) (Tier, bool) {
	for t := TierLow; t <= TierCritical; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return TierCritical, false
}

// RequiresChallenge reports whether a session at this tier must solve a challenge.
func (t Tier) RequiresChallenge() bool {
	return t != TierLow
}

// Action is what the caller should do with a visitor at a given tier.
type Action string

// Actions returned alongside a tier.
const (
	ActionAllow      Action = "allow"
	ActionSimpleQuiz Action = "simple_quiz"
	ActionMediumQuiz Action = "medium_quiz"
	ActionHardQuiz   Action = "hard_quiz"
)

// Assessment is the transient result of scoring one session snapshot.
type Assessment struct {
	Probability float64
	Tier        Tier
	Action      Action
	Features    Features
	// Degraded is set when the scorer failed and the tier was forced to
	// the most restrictive one.
	Degraded bool
}
