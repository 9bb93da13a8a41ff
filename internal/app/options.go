package service

import (
	"time"

	repository "github.com/okian/quizgate/internal/adapters/repository"
	"github.com/okian/quizgate/internal/domain/bank"
	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/pass"
	"github.com/okian/quizgate/internal/domain/risk"
	"github.com/okian/quizgate/internal/domain/scoring"
	"github.com/okian/quizgate/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of telemetry worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the telemetry queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithQueueDropOldest makes a full telemetry queue evict its oldest outcome.
func WithQueueDropOldest(enabled bool) Option {
	return func(s *Service) {
		s.queueDropOldest = enabled
	}
}

// WithDedupeSize sets the size of the track event deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock shared by the store, challenge factory and pass issuer.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionTTL sets how long a session lives before a sweep removes it.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithSweepInterval sets the period of the background sweeper. Zero
// disables the ticker; sweeps still run before stats.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.sweepInterval = interval
		}
	}
}

// WithStore replaces the session store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreOptions configures the default session store.
func WithStoreOptions(opts ...repository.Option) Option {
	return func(s *Service) {
		s.storeOpts = append(s.storeOpts, opts...)
	}
}

// WithScorer replaces the heuristic scorer. The scorer is still wrapped by
// the circuit breaker.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.inner = scorer
		}
	}
}

// WithScorerOptions configures the default heuristic scorer.
func WithScorerOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scorerOpts = append(s.scorerOpts, opts...)
	}
}

// WithBreakerOptions configures the scorer circuit breaker.
func WithBreakerOptions(opts ...scoring.BreakerOption) Option {
	return func(s *Service) {
		s.breakerOpts = append(s.breakerOpts, opts...)
	}
}

// WithThresholds sets the risk tier cut points.
func WithThresholds(t risk.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
	}
}

// WithBank sets the question bank challenges draw from.
func WithBank(b bank.Bank) Option {
	return func(s *Service) {
		if b != nil {
			s.bank = b
		}
	}
}

// WithFactoryOptions configures the challenge factory.
func WithFactoryOptions(opts ...challenge.FactoryOption) Option {
	return func(s *Service) {
		s.factoryOpts = append(s.factoryOpts, opts...)
	}
}

// WithVerifierOptions configures the challenge verifier.
func WithVerifierOptions(opts ...challenge.VerifierOption) Option {
	return func(s *Service) {
		s.verifierOpts = append(s.verifierOpts, opts...)
	}
}

// WithPassOptions configures the access pass issuer.
func WithPassOptions(opts ...pass.Option) Option {
	return func(s *Service) {
		s.passOpts = append(s.passOpts, opts...)
	}
}

// WithExposeAnswers controls whether issued challenge views carry correct
// answers and explanations.
func WithExposeAnswers(expose bool) Option {
	return func(s *Service) {
		s.exposeAnswers = expose
	}
}
