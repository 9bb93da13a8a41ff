// Package risk maps a bot probability onto a discrete tier and action.
package risk

import (
	"fmt"

	"github.com/okian/quizgate/internal/domain/model"
)

// Default tier boundaries.
const (
	DefaultLow    = 0.30
	DefaultMedium = 0.60
	DefaultHigh   = 0.85
)

// Thresholds are the lower bounds of the Medium, High and Critical tiers.
type Thresholds struct {
	Low    float64 `json:"low_risk"`
	Medium float64 `json:"medium_risk"`
	High   float64 `json:"high_risk"`
}

// DefaultThresholds returns the stock 0.30/0.60/0.85 boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultLow, Medium: DefaultMedium, High: DefaultHigh}
}

// Validate checks that 0 < Low < Medium < High <= 1.
func (t Thresholds) Validate() error {
	if !(t.Low > 0 && t.Low < t.Medium && t.Medium < t.High && t.High <= 1) {
		return fmt.Errorf("%w: low=%v medium=%v high=%v", ErrInvalidThresholds, t.Low, t.Medium, t.High)
	}
	return nil
}

// Classifier turns probabilities into tiers.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier returns a classifier for t, or an error if t is invalid.
func NewClassifier(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

// Thresholds returns the configured boundaries.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify buckets p. Each boundary belongs to the tier above it.
func (c *Classifier) Classify(p float64) (model.Tier, model.Action) {
	switch {
	case p < c.thresholds.Low:
		return model.TierLow, model.ActionAllow
	case p < c.thresholds.Medium:
		return model.TierMedium, model.ActionSimpleQuiz
	case p < c.thresholds.High:
		return model.TierHigh, model.ActionMediumQuiz
	default:
		return model.TierCritical, model.ActionHardQuiz
	}
}
