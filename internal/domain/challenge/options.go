package challenge

import (
	"math/rand"
	"slices"
	"time"
)

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithRand sets the random source used for category and question sampling.
func WithRand(r *rand.Rand) FactoryOption {
	return func(f *Factory) {
		if r != nil {
			f.rng = r
		}
	}
}

// WithClock sets the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// WithIDGenerator replaces the challenge ID generator.
func WithIDGenerator(gen func() string) FactoryOption {
	return func(f *Factory) {
		if gen != nil {
			f.newID = gen
		}
	}
}

// WithSingleCategories sets the categories a single quiz may draw from.
func WithSingleCategories(categories ...string) FactoryOption {
	return func(f *Factory) {
		if len(categories) > 0 {
			f.singleCategories = slices.Clone(categories)
		}
	}
}

// WithMultiCategories sets the categories a multi quiz samples from.
func WithMultiCategories(categories ...string) FactoryOption {
	return func(f *Factory) {
		if len(categories) > 0 {
			f.multiCategories = slices.Clone(categories)
		}
	}
}

// WithMultiQuiz sets the number of questions and the passing score.
func WithMultiQuiz(questions, passingScore int) FactoryOption {
	return func(f *Factory) {
		f.multiCount = questions
		f.passingScore = passingScore
	}
}

// WithTimeLimits overrides the advisory limits of each challenge kind.
func WithTimeLimits(ack, single, multi time.Duration) FactoryOption {
	return func(f *Factory) {
		if ack > 0 {
			f.ackLimit = ack
		}
		if single > 0 {
			f.singleLimit = single
		}
		if multi > 0 {
			f.multiLimit = multi
		}
	}
}
