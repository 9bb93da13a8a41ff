// Package scoring defines the contract for turning a feature vector into a
// bot probability, plus a heuristic implementation and a guarded wrapper.
package scoring

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/quizgate/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultSteepness  = 12.0
	defaultMidpoint   = 0.30
	defaultRandomSeed = 42
)

// Human reference ranges the heuristic measures deviation from.
const (
	humanMouseMin    = 20
	humanMouseMax    = 200
	humanSpeedMax    = 800
	botSpeedSpan     = 700
	humanKeysMin     = 30
	humanKeysMax     = 150
	humanTypingMin   = 1
	humanTypingMax   = 8
	botTypingSpan    = 7
	humanDurationMin = 10
)

// Scorer maps a feature vector to a bot probability in [0, 1].
type Scorer interface {
	// Score computes a probability, honoring ctx for cancellation.
	Score(ctx context.Context, f model.Features) (float64, error)
}

// Weights are the contributions of each feature signal to the raw score.
type Weights struct {
	Mouse    float64 `koanf:"mouse"`
	Speed    float64 `koanf:"speed"`
	Keys     float64 `koanf:"keys"`
	Typing   float64 `koanf:"typing"`
	Duration float64 `koanf:"duration"`
}

// DefaultWeights returns the stock weights; they sum to 1.
func DefaultWeights() Weights {
	return Weights{Mouse: 0.25, Speed: 0.15, Keys: 0.15, Typing: 0.15, Duration: 0.30}
}

// HeuristicScorer implements Scorer with fixed per-feature bot signals
// squashed through a logistic curve. It can simulate the latency of a
// remote model.
type HeuristicScorer struct {
	weights   Weights
	steepness float64
	midpoint  float64
	// Simulated latency range
	minLatency time.Duration
	maxLatency time.Duration
	seed       int64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristicScorer creates a scorer with configuration options.
func NewHeuristicScorer(opts ...Option) *HeuristicScorer {
	s := &HeuristicScorer{
		weights:   DefaultWeights(),
		steepness: defaultSteepness,
		midpoint:  defaultMidpoint,
		seed:      defaultRandomSeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewSource(s.seed)) //nolint:gosec // jitter only
	return s
}

// Score implements Scorer.
func (s *HeuristicScorer) Score(ctx context.Context, f model.Features) (float64, error) {
	if latency := s.latency(); latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return s.Probability(f), nil
}

// Probability is the pure scoring function behind Score.
func (s *HeuristicScorer) Probability(f model.Features) float64 {
	w := s.weights
	z := w.Mouse*mouseSignal(f.MouseCount) +
		w.Speed*speedSignal(f.AvgMouseSpeed) +
		w.Keys*keysSignal(f.KeystrokeCount) +
		w.Typing*typingSignal(f.TypingSpeed) +
		w.Duration*durationSignal(f.SessionDuration)
	return 1 / (1 + math.Exp(-s.steepness*(z-s.midpoint)))
}

func (s *HeuristicScorer) latency() time.Duration {
	if s.maxLatency <= s.minLatency {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
}

// Each signal is in [0, 1]; 0 means human-like.

func mouseSignal(n int) float64 {
	switch {
	case n < humanMouseMin:
		return float64(humanMouseMin-n) / humanMouseMin
	case n > humanMouseMax:
		return 0.5 * math.Min(1, float64(n-humanMouseMax)/humanMouseMax)
	}
	return 0
}

func speedSignal(v float64) float64 {
	if v > humanSpeedMax {
		return math.Min(1, (v-humanSpeedMax)/botSpeedSpan)
	}
	return 0
}

func keysSignal(n int) float64 {
	switch {
	case n < humanKeysMin:
		return 0.5 * float64(humanKeysMin-n) / humanKeysMin
	case n > humanKeysMax:
		return math.Min(1, float64(n-humanKeysMax)/humanKeysMax)
	}
	return 0
}

func typingSignal(t float64) float64 {
	switch {
	case t > humanTypingMax:
		return math.Min(1, (t-humanTypingMax)/botTypingSpan)
	case t < humanTypingMin:
		return 0.5 * (humanTypingMin - t)
	}
	return 0
}

func durationSignal(d float64) float64 {
	if d < humanDurationMin {
		return (humanDurationMin - d) / humanDurationMin
	}
	return 0
}
