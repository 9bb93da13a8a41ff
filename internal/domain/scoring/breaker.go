package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/pkg/metrics"
	"github.com/sony/gobreaker"
)

// Breaker defaults.
const (
	defaultTimeout     = 250 * time.Millisecond
	defaultMaxFailures = 5
	defaultCooldown    = 10 * time.Second
	halfOpenRequests   = 1
)

// BreakerScorer guards another Scorer with a per-call timeout and a
// circuit breaker. Every failure is reported as ErrUnavailable.
type BreakerScorer struct {
	next        Scorer
	breaker     *gobreaker.CircuitBreaker
	timeout     time.Duration
	maxFailures uint32
	cooldown    time.Duration
}

type scoreResult struct {
	p   float64
	err error
}

// NewBreakerScorer wraps next.
func NewBreakerScorer(name string, next Scorer, opts ...BreakerOption) *BreakerScorer {
	b := &BreakerScorer{
		next:        next,
		timeout:     defaultTimeout,
		maxFailures: defaultMaxFailures,
		cooldown:    defaultCooldown,
	}
	for _, opt := range opts {
		opt(b)
	}

	maxFailures := b.maxFailures
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: halfOpenRequests,
		Timeout:     b.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			metrics.UpdateBreakerState(int(to))
		},
	})
	return b
}

// Score implements Scorer.
func (b *BreakerScorer) Score(ctx context.Context, f model.Features) (float64, error) {
	start := time.Now()
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.call(ctx, f)
	})
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordScoringError(errorReason(err))
		return 0, fmt.Errorf("%w: breaker (%s): %w", ErrUnavailable, b.breaker.Name(), err)
	}
	return out.(float64), nil
}

// State returns the breaker state name: closed, half-open or open.
func (b *BreakerScorer) State() string {
	return b.breaker.State().String()
}

// call runs next with a deadline. A scorer that ignores ctx is abandoned
// when the deadline passes.
func (b *BreakerScorer) call(ctx context.Context, f model.Features) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan scoreResult, 1)
	go func() {
		p, err := b.next.Score(ctx, f)
		done <- scoreResult{p: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return 0, r.err
		}
		if math.IsNaN(r.p) || r.p < 0 || r.p > 1 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidProbability, r.p)
		}
		return r.p, nil
	}
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrInvalidProbability):
		return "invalid_probability"
	default:
		return "upstream"
	}
}
