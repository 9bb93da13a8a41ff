package scoring

import "time"

// Option applies a configuration option to the HeuristicScorer.
type Option func(*HeuristicScorer)

// WithLatencyRange sets the simulated latency range. A zero range disables
// the simulation.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *HeuristicScorer) {
		if minLatency >= 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithWeights replaces the per-feature weights. Negative weights are
// ignored.
func WithWeights(w Weights) Option {
	return func(s *HeuristicScorer) {
		if w.Mouse >= 0 && w.Speed >= 0 && w.Keys >= 0 && w.Typing >= 0 && w.Duration >= 0 {
			s.weights = w
		}
	}
}

// WithLogistic sets the steepness and midpoint of the squashing curve.
func WithLogistic(steepness, midpoint float64) Option {
	return func(s *HeuristicScorer) {
		if steepness > 0 {
			s.steepness = steepness
		}
		if midpoint > 0 {
			s.midpoint = midpoint
		}
	}
}

// WithSeed seeds the latency jitter source.
func WithSeed(seed int64) Option {
	return func(s *HeuristicScorer) {
		s.seed = seed
	}
}

// BreakerOption configures a BreakerScorer.
type BreakerOption func(*BreakerScorer)

// WithTimeout bounds a single Score call.
func WithTimeout(d time.Duration) BreakerOption {
	return func(b *BreakerScorer) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithTripAfter opens the breaker after n consecutive failures.
func WithTripAfter(n uint32) BreakerOption {
	return func(b *BreakerScorer) {
		if n > 0 {
			b.maxFailures = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before probing.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *BreakerScorer) {
		if d > 0 {
			b.cooldown = d
		}
	}
}
