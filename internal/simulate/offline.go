package simulate

import (
	"context"
	"fmt"

	"github.com/okian/quizgate/internal/domain/risk"
	"github.com/okian/quizgate/internal/domain/scoring"
)

// RunOffline scores profiles directly with the heuristic scorer and the
// default thresholds, without a server.
func RunOffline(ctx context.Context, profiles []Profile) (*Report, error) {
	scorer := scoring.NewHeuristicScorer()
	classifier, err := risk.NewClassifier(risk.DefaultThresholds())
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	report := newReport(ModeOffline)
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("offline run interrupted: %w", err)
		}
		tier, _ := classifier.Classify(scorer.Probability(p.Features()))
		report.observe(p.Bot, tier, false)
	}
	report.finish()
	return report, nil
}
