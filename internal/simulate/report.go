package simulate

import (
	"context"
	"sync"
	"time"

	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/pkg/logger"
)

const tierCount = int(model.TierCritical) + 1

// Report aggregates the outcome of a run. It is safe for concurrent use.
type Report struct {
	mu sync.Mutex

	Mode       string
	Humans     int
	Bots       int
	HumanTiers [tierCount]int
	BotTiers   [tierCount]int
	Degraded   int

	EventsSent     int
	EventsRejected int

	ChallengesIssued map[string]int
	ChallengesPassed int
	ChallengesFailed int

	Errors    int
	StartTime time.Time
	EndTime   time.Time
}

func newReport(mode string) *Report {
	return &Report{Mode: mode, ChallengesIssued: make(map[string]int), StartTime: time.Now()}
}

func (r *Report) observe(bot bool, tier model.Tier, degraded bool) {
	if tier < model.TierLow || tier > model.TierCritical {
		tier = model.TierCritical
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if bot {
		r.Bots++
		r.BotTiers[tier]++
	} else {
		r.Humans++
		r.HumanTiers[tier]++
	}
	if degraded {
		r.Degraded++
	}
}

func (r *Report) events(sent, rejected int) {
	r.mu.Lock()
	r.EventsSent += sent
	r.EventsRejected += rejected
	r.mu.Unlock()
}

func (r *Report) challenge(kind string) {
	r.mu.Lock()
	r.ChallengesIssued[kind]++
	r.mu.Unlock()
}

func (r *Report) answered(passed bool) {
	r.mu.Lock()
	if passed {
		r.ChallengesPassed++
	} else {
		r.ChallengesFailed++
	}
	r.mu.Unlock()
}

func (r *Report) failure() {
	r.mu.Lock()
	r.Errors++
	r.mu.Unlock()
}

func (r *Report) finish() {
	r.mu.Lock()
	r.EndTime = time.Now()
	r.mu.Unlock()
}

// HumanAllowRate is the share of humans classified as low risk.
func (r *Report) HumanAllowRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ratio(r.HumanTiers[model.TierLow], r.Humans)
}

// BotCatchRate is the share of bots that were sent a challenge.
func (r *Report) BotCatchRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ratio(r.Bots-r.BotTiers[model.TierLow], r.Bots)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func tierHistogram(t [tierCount]int) map[string]int {
	out := make(map[string]int, tierCount)
	for i, n := range t {
		out[model.Tier(i).String()] = n
	}
	return out
}

// Log writes the run summary.
func (r *Report) Log(ctx context.Context) {
	allow, catch := r.HumanAllowRate(), r.BotCatchRate()

	r.mu.Lock()
	defer r.mu.Unlock()
	logger.Get().Info(ctx, "simulation finished",
		logger.String("mode", r.Mode),
		logger.Int("humans", r.Humans),
		logger.Int("bots", r.Bots),
		logger.Any("humanTiers", tierHistogram(r.HumanTiers)),
		logger.Any("botTiers", tierHistogram(r.BotTiers)),
		logger.Float64("humanAllowRate", allow),
		logger.Float64("botCatchRate", catch),
		logger.Int("degraded", r.Degraded),
		logger.Int("eventsSent", r.EventsSent),
		logger.Int("eventsRejected", r.EventsRejected),
		logger.Any("challengesIssued", r.ChallengesIssued),
		logger.Int("challengesPassed", r.ChallengesPassed),
		logger.Int("challengesFailed", r.ChallengesFailed),
		logger.Int("errors", r.Errors),
		logger.Duration("elapsed", r.EndTime.Sub(r.StartTime)))
}
