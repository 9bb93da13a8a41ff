package challenge

import (
	"slices"
	"time"

	"github.com/okian/quizgate/internal/domain/bank"
)

// QuestionView is the client representation of a quiz question.
type QuestionView struct {
	Category      string   `json:"category"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// View is the client representation of an issued challenge.
type View struct {
	ID         string     `json:"id"`
	Type       Kind       `json:"type"`
	Difficulty Difficulty `json:"difficulty"`
	TimeLimit  int        `json:"time_limit"`
	CreatedAt  time.Time  `json:"created_at"`

	Instruction            string `json:"instruction,omitempty"`
	RequiresTimingAnalysis bool   `json:"requires_timing_analysis,omitempty"`

	*QuestionView

	Questions      []QuestionView `json:"questions,omitempty"`
	TotalQuestions int            `json:"total_questions,omitempty"`
	PassingScore   int            `json:"passing_score,omitempty"`
}

// Describe renders ch for the client. Answers and explanations are included
// only when withAnswers is set.
func Describe(ch Challenge, withAnswers bool) View {
	m := ch.Info()
	v := View{
		ID:         m.ID,
		Type:       ch.Kind(),
		Difficulty: m.Difficulty,
		TimeLimit:  int(m.TimeLimit / time.Second),
		CreatedAt:  m.CreatedAt,
	}

	switch c := ch.(type) {
	case TimedAck:
		v.Instruction = c.Instruction
		v.RequiresTimingAnalysis = true
	case SingleQuiz:
		qv := describeQuestion(c.Question, withAnswers)
		v.QuestionView = &qv
	case MultiQuiz:
		v.Questions = make([]QuestionView, len(c.Questions))
		for i, q := range c.Questions {
			v.Questions[i] = describeQuestion(q, withAnswers)
		}
		v.TotalQuestions = len(c.Questions)
		v.PassingScore = c.PassingScore
	}
	return v
}

func describeQuestion(q bank.Question, withAnswers bool) QuestionView {
	qv := QuestionView{Category: q.Category, Question: q.Text, Options: slices.Clone(q.Options)}
	if withAnswers {
		qv.CorrectAnswer = q.Correct
		qv.Explanation = q.Explanation
	}
	return qv
}
