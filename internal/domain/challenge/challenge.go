// Package challenge builds and verifies the tasks issued to sessions whose
// risk tier requires proof of human behaviour.
package challenge

import (
	"slices"
	"time"

	"github.com/okian/quizgate/internal/domain/bank"
)

// Kind is the wire tag of a challenge variant.
type Kind string

// Challenge kinds.
const (
	KindTimedAck   Kind = "checkbox"
	KindSingleQuiz Kind = "quiz"
	KindMultiQuiz  Kind = "multi_quiz"
)

// Difficulty labels a challenge for display.
type Difficulty string

// Difficulty levels.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Meta holds the attributes shared by every challenge.
type Meta struct {
	ID         string
	Difficulty Difficulty
	TimeLimit  time.Duration
	CreatedAt  time.Time
}

// Info returns the shared attributes.
func (m Meta) Info() Meta { return m }

// Challenge is one of TimedAck, SingleQuiz or MultiQuiz. Values are
// immutable once created.
type Challenge interface {
	Kind() Kind
	Info() Meta
	challenge()
}

// TimedAck asks the visitor to acknowledge a checkbox; only the timing of
// the acknowledgement is judged.
type TimedAck struct {
	Meta
	Instruction string
}

// Kind implements Challenge.
func (TimedAck) Kind() Kind { return KindTimedAck }
func (TimedAck) challenge() {}

// SingleQuiz is one multiple-choice question.
type SingleQuiz struct {
	Meta
	Question bank.Question
}

// Kind implements Challenge.
func (SingleQuiz) Kind() Kind { return KindSingleQuiz }
func (SingleQuiz) challenge() {}

// MultiQuiz is an ordered set of questions from distinct categories.
type MultiQuiz struct {
	Meta
	Questions    []bank.Question
	PassingScore int
}

// Kind implements Challenge.
func (MultiQuiz) Kind() Kind { return KindMultiQuiz }
func (MultiQuiz) challenge() {}

// Categories lists the category of each question in order.
func (m MultiQuiz) Categories() []string {
	out := make([]string, len(m.Questions))
	for i, q := range m.Questions {
		out[i] = q.Category
	}
	return out
}

func cloneQuestion(q bank.Question) bank.Question {
	q.Options = slices.Clone(q.Options)
	return q
}
