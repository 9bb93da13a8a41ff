package challenge

import (
	"fmt"
	"math"
	"time"
)

// Minimum human response times.
const (
	DefaultMinAckElapsed  = 500 * time.Millisecond
	DefaultMinQuizElapsed = 2 * time.Second
)

// Verification reasons.
const (
	ReasonAckTooFast     = "Response too fast - suspicious behavior"
	ReasonAckVerified    = "Checkbox verified"
	ReasonAckNotClicked  = "Checkbox not clicked"
	ReasonAckTimedOut    = "Time limit exceeded"
	ReasonQuizTooFast    = "Answer too fast - suspicious behavior"
	ReasonQuizCorrect    = "Correct answer!"
	ReasonQuizIncorrect  = "Incorrect answer"
	ReasonUnknownVariant = "Unknown challenge type"
)

// Response is a visitor's answer to an outstanding challenge. Clicked is an
// alias of Acknowledged accepted for older clients.
type Response struct {
	Acknowledged *bool     `json:"acknowledged,omitempty"`
	Clicked      *bool     `json:"clicked,omitempty"`
	Answer       *string   `json:"answer,omitempty"`
	Answers      []*string `json:"answers,omitempty"`
	// ResponseTime is the client-measured elapsed time in seconds.
	ResponseTime *float64 `json:"response_time,omitempty"`
}

// Ack reports whether the checkbox was acknowledged.
func (r Response) Ack() bool {
	if r.Acknowledged != nil {
		return *r.Acknowledged
	}
	return r.Clicked != nil && *r.Clicked
}

// Validate checks that r carries the field required by kind.
func (r Response) Validate(kind Kind) error {
	if rt := r.ResponseTime; rt != nil && (*rt < 0 || math.IsNaN(*rt) || math.IsInf(*rt, 0)) {
		return fmt.Errorf("%w: response_time must be a non-negative number", ErrMalformedResponse)
	}
	switch kind {
	case KindSingleQuiz:
		if r.Answer == nil {
			return fmt.Errorf("%w: answer is required", ErrMalformedResponse)
		}
	case KindMultiQuiz:
		if r.Answers == nil {
			return fmt.Errorf("%w: answers is required", ErrMalformedResponse)
		}
	}
	return nil
}

// maxElapsedSeconds is the largest response time a time.Duration can hold.
var maxElapsedSeconds = float64(math.MaxInt64) / float64(time.Second)

// Elapsed returns the client-reported response time when present, falling
// back to the time since ch was created.
func (r Response) Elapsed(ch Challenge, now time.Time) time.Duration {
	if r.ResponseTime != nil {
		secs := *r.ResponseTime
		switch {
		case !(secs > 0):
			return 0
		case secs >= maxElapsedSeconds:
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(secs * float64(time.Second))
	}
	d := now.Sub(ch.Info().CreatedAt)
	if d < 0 {
		return 0
	}
	return d
}

// QuestionResult is the per-question breakdown of a multi quiz.
type QuestionResult struct {
	Question      string  `json:"question"`
	UserAnswer    *string `json:"user_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	IsCorrect     bool    `json:"is_correct"`
	Explanation   string  `json:"explanation"`
}

// Tally summarises a multi quiz attempt.
type Tally struct {
	Score        int              `json:"score"`
	Total        int              `json:"total"`
	PassingScore int              `json:"passing_score"`
	Results      []QuestionResult `json:"results"`
}

// Result is the outcome of verifying one response.
type Result struct {
	Kind          Kind   `json:"type"`
	Verified      bool   `json:"verified"`
	Reason        string `json:"reason"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	*Tally
	Elapsed time.Duration `json:"-"`
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithMinElapsed overrides the too-fast cutoffs.
func WithMinElapsed(ack, quiz time.Duration) VerifierOption {
	return func(v *Verifier) {
		if ack > 0 {
			v.minAck = ack
		}
		if quiz > 0 {
			v.minQuiz = quiz
		}
	}
}

// Verifier judges responses against challenges. It is stateless and safe
// for concurrent use.
type Verifier struct {
	minAck  time.Duration
	minQuiz time.Duration
}

// NewVerifier returns a Verifier with the default timing cutoffs.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{minAck: DefaultMinAckElapsed, minQuiz: DefaultMinQuizElapsed}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify dispatches on the challenge variant.
func (v *Verifier) Verify(ch Challenge, resp Response, elapsed time.Duration) Result {
	var res Result
	switch c := ch.(type) {
	case TimedAck:
		res = v.verifyAck(c, resp, elapsed)
	case SingleQuiz:
		res = v.verifySingle(c, resp, elapsed)
	case MultiQuiz:
		res = verifyMulti(c, resp)
	default:
		res = Result{Reason: ReasonUnknownVariant}
		if ch != nil {
			res.Kind = ch.Kind()
		}
	}
	res.Elapsed = elapsed
	return res
}

func (v *Verifier) verifyAck(c TimedAck, resp Response, elapsed time.Duration) Result {
	res := Result{Kind: KindTimedAck}
	switch {
	case elapsed < v.minAck:
		res.Reason = ReasonAckTooFast
	case !resp.Ack():
		res.Reason = ReasonAckNotClicked
	case elapsed >= c.TimeLimit:
		res.Reason = ReasonAckTimedOut
	default:
		res.Verified = true
		res.Reason = ReasonAckVerified
	}
	return res
}

func (v *Verifier) verifySingle(c SingleQuiz, resp Response, elapsed time.Duration) Result {
	res := Result{Kind: KindSingleQuiz}
	correct := resp.Answer != nil && *resp.Answer == c.Question.Correct
	switch {
	case correct && elapsed < v.minQuiz:
		res.Reason = ReasonQuizTooFast
	case correct:
		res.Verified = true
		res.Reason = ReasonQuizCorrect
		return res
	default:
		res.Reason = ReasonQuizIncorrect
	}
	res.CorrectAnswer = c.Question.Correct
	res.Explanation = c.Question.Explanation
	return res
}

func verifyMulti(c MultiQuiz, resp Response) Result {
	tally := &Tally{
		Total:        len(c.Questions),
		PassingScore: c.PassingScore,
		Results:      make([]QuestionResult, len(c.Questions)),
	}
	for i, q := range c.Questions {
		var answer *string
		if i < len(resp.Answers) {
			answer = resp.Answers[i]
		}
		ok := answer != nil && *answer == q.Correct
		if ok {
			tally.Score++
		}
		tally.Results[i] = QuestionResult{
			Question:      q.Text,
			UserAnswer:    answer,
			CorrectAnswer: q.Correct,
			IsCorrect:     ok,
			Explanation:   q.Explanation,
		}
	}
	return Result{
		Kind:     KindMultiQuiz,
		Verified: tally.Score >= tally.PassingScore,
		Reason:   fmt.Sprintf("Passed %d/%d questions", tally.Score, tally.Total),
		Tally:    tally,
	}
}
