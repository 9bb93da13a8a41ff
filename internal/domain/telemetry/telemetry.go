// Package telemetry folds service outcomes into running counters reported
// by /stats.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/okian/quizgate/internal/domain/model"
)

// KindStats aggregates verification attempts for one challenge kind.
type KindStats struct {
	Issued     int64   `json:"issued"`
	Passed     int64   `json:"passed"`
	Failed     int64   `json:"failed"`
	AvgElapsed float64 `json:"avg_elapsed_seconds"`

	elapsedSum time.Duration
}

// Summary is a point-in-time copy of the ledger.
type Summary struct {
	Assessments map[string]int64     `json:"assessments"`
	Degraded    int64                `json:"degraded"`
	Challenges  map[string]KindStats `json:"challenges"`
	Dropped     int64                `json:"dropped"`
}

// Ledger accumulates outcomes. It is safe for concurrent use.
type Ledger struct {
	mu          sync.Mutex
	assessments map[model.Tier]int64
	degraded    int64
	challenges  map[string]*KindStats
	dropped     int64
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		assessments: make(map[model.Tier]int64),
		challenges:  make(map[string]*KindStats),
	}
}

// Apply folds one outcome into the ledger.
func (l *Ledger) Apply(_ context.Context, o model.Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch o.Kind {
	case model.OutcomeAssessed:
		l.assessments[o.Tier]++
		if o.Degraded {
			l.degraded++
		}
	case model.OutcomeChallengeIssued:
		l.kind(o.Challenge).Issued++
	case model.OutcomeVerified:
		ks := l.kind(o.Challenge)
		if o.Passed {
			ks.Passed++
		} else {
			ks.Failed++
		}
		ks.elapsedSum += o.Elapsed
		ks.AvgElapsed = ks.elapsedSum.Seconds() / float64(ks.Passed+ks.Failed)
	}
	return nil
}

// RecordDropped counts an outcome that never reached the ledger.
func (l *Ledger) RecordDropped() {
	l.mu.Lock()
	l.dropped++
	l.mu.Unlock()
}

// Summary returns a copy of the counters.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Summary{
		Assessments: make(map[string]int64, len(l.assessments)),
		Degraded:    l.degraded,
		Challenges:  make(map[string]KindStats, len(l.challenges)),
		Dropped:     l.dropped,
	}
	for tier, n := range l.assessments {
		s.Assessments[tier.String()] = n
	}
	for kind, ks := range l.challenges {
		s.Challenges[kind] = *ks
	}
	return s
}

func (l *Ledger) kind(name string) *KindStats {
	ks, ok := l.challenges[name]
	if !ok {
		ks = &KindStats{}
		l.challenges[name] = ks
	}
	return ks
}
