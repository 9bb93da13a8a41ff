package challenge

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/quizgate/internal/domain/bank"
	"github.com/okian/quizgate/internal/domain/model"
)

// Defaults for challenge construction.
const (
	DefaultAckTimeLimit    = 30 * time.Second
	DefaultSingleTimeLimit = 45 * time.Second
	DefaultMultiTimeLimit  = 90 * time.Second
	DefaultMultiQuestions  = 3
	DefaultPassingScore    = 2

	minMultiQuestions = 2
	maxMultiQuestions = 4

	ackInstruction = "Click the checkbox to verify you are human"
)

// Factory builds challenges appropriate to a risk tier.
type Factory struct {
	bank bank.Bank

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	now   func() time.Time
	newID func() string

	singleCategories []string
	multiCategories  []string
	multiCount       int
	passingScore     int

	ackLimit    time.Duration
	singleLimit time.Duration
	multiLimit  time.Duration
}

// NewFactory returns a Factory drawing from b. It fails if a configured
// category is missing from the bank or the multi quiz shape is invalid.
func NewFactory(b bank.Bank, opts ...FactoryOption) (*Factory, error) {
	f := &Factory{
		bank:             b,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // not security sensitive
		now:              time.Now,
		newID:            uuid.NewString,
		singleCategories: []string{bank.CategoryCommonSense, bank.CategoryMath, bank.CategoryVisual},
		multiCategories:  []string{bank.CategoryLogic, bank.CategoryCommonSense, bank.CategoryMath, bank.CategoryPattern},
		multiCount:       DefaultMultiQuestions,
		passingScore:     DefaultPassingScore,
		ackLimit:         DefaultAckTimeLimit,
		singleLimit:      DefaultSingleTimeLimit,
		multiLimit:       DefaultMultiTimeLimit,
	}
	for _, opt := range opts {
		opt(f)
	}

	if b == nil {
		return nil, fmt.Errorf("%w: nil bank", ErrInvalidFactory)
	}
	for _, c := range slices.Concat(f.singleCategories, f.multiCategories) {
		if len(b.QuestionsIn(c)) == 0 {
			return nil, fmt.Errorf("%w: category %q has no questions", ErrInvalidFactory, c)
		}
	}
	if f.multiCount < minMultiQuestions || f.multiCount > maxMultiQuestions {
		return nil, fmt.Errorf("%w: multi quiz needs %d..%d questions, got %d",
			ErrInvalidFactory, minMultiQuestions, maxMultiQuestions, f.multiCount)
	}
	if len(f.multiCategories) < f.multiCount {
		return nil, fmt.Errorf("%w: %d multi categories for %d questions",
			ErrInvalidFactory, len(f.multiCategories), f.multiCount)
	}
	if f.passingScore < 1 || f.passingScore > f.multiCount {
		return nil, fmt.Errorf("%w: passing score %d out of 1..%d", ErrInvalidFactory, f.passingScore, f.multiCount)
	}
	return f, nil
}

// Create returns a challenge for tier. Low and unrecognized tiers fall back
// to a TimedAck.
func (f *Factory) Create(tier model.Tier) Challenge {
	switch tier {
	case model.TierHigh:
		return f.single()
	case model.TierCritical:
		return f.multi()
	default:
		return f.timedAck()
	}
}

func (f *Factory) meta(d Difficulty, limit time.Duration) Meta {
	return Meta{ID: f.newID(), Difficulty: d, TimeLimit: limit, CreatedAt: f.now()}
}

func (f *Factory) timedAck() TimedAck {
	return TimedAck{Meta: f.meta(DifficultyEasy, f.ackLimit), Instruction: ackInstruction}
}

func (f *Factory) single() SingleQuiz {
	f.mu.Lock()
	category := f.singleCategories[f.rng.Intn(len(f.singleCategories))]
	q := f.pick(category)
	f.mu.Unlock()

	return SingleQuiz{Meta: f.meta(DifficultyMedium, f.singleLimit), Question: q}
}

func (f *Factory) multi() MultiQuiz {
	f.mu.Lock()
	perm := f.rng.Perm(len(f.multiCategories))[:f.multiCount]
	questions := make([]bank.Question, len(perm))
	for i, idx := range perm {
		questions[i] = f.pick(f.multiCategories[idx])
	}
	f.mu.Unlock()

	return MultiQuiz{
		Meta:         f.meta(DifficultyHard, f.multiLimit),
		Questions:    questions,
		PassingScore: f.passingScore,
	}
}

// pick must be called with f.mu held.
func (f *Factory) pick(category string) bank.Question {
	qs := f.bank.QuestionsIn(category)
	q := cloneQuestion(qs[f.rng.Intn(len(qs))])
	q.Category = category
	return q
}
