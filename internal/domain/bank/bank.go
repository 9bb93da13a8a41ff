// Package bank holds the read-only question store queried by the challenge
// factory.
package bank

import (
	"fmt"
	"slices"
	"sort"
)

// Question is a single multiple-choice item.
type Question struct {
	Category    string   `koanf:"-" json:"category"`
	Text        string   `koanf:"question" json:"question"`
	Options     []string `koanf:"options" json:"options"`
	Correct     string   `koanf:"correct" json:"correct_answer"`
	Explanation string   `koanf:"explanation" json:"explanation"`
}

// Bank is a static set of questions grouped by category.
type Bank interface {
	// Categories returns the category identifiers in stable order.
	Categories() []string
	// QuestionsIn returns the questions of category, or nil if unknown.
	QuestionsIn(category string) []Question
}

// Static is an immutable in-memory Bank.
type Static struct {
	categories []string
	questions  map[string][]Question
}

// New validates content and returns a Static bank. Every question must have
// text, at least two options, and a correct answer that is one of them.
func New(content map[string][]Question) (*Static, error) {
	if len(content) == 0 {
		return nil, ErrEmptyBank
	}

	b := &Static{questions: make(map[string][]Question, len(content))}
	for cat, qs := range content {
		if cat == "" || len(qs) == 0 {
			return nil, fmt.Errorf("%w: category %q has no questions", ErrEmptyBank, cat)
		}
		copied := make([]Question, len(qs))
		for i, q := range qs {
			if q.Text == "" || len(q.Options) < 2 || !slices.Contains(q.Options, q.Correct) {
				return nil, fmt.Errorf("%w: %s[%d]", ErrInvalidQuestion, cat, i)
			}
			q.Category = cat
			q.Options = slices.Clone(q.Options)
			copied[i] = q
		}
		b.questions[cat] = copied
		b.categories = append(b.categories, cat)
	}
	sort.Strings(b.categories)
	return b, nil
}

// Categories implements Bank.
func (b *Static) Categories() []string {
	return slices.Clone(b.categories)
}

// QuestionsIn implements Bank. The returned slice is a copy.
func (b *Static) QuestionsIn(category string) []Question {
	qs, ok := b.questions[category]
	if !ok {
		return nil
	}
	return slices.Clone(qs)
}

// TotalQuestions counts questions across all categories.
func TotalQuestions(b Bank) int {
	n := 0
	for _, c := range b.Categories() {
		n += len(b.QuestionsIn(c))
	}
	return n
}
