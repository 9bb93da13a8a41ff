// Package features turns a session's raw interaction log into the fixed
// feature vector consumed by the scorer.
package features

import (
	"math"
	"time"

	"github.com/okian/quizgate/internal/domain/model"
)

// Extract computes the feature vector for snap as of now.
//
// Session duration is measured against now rather than the last event, so
// an idle session keeps accruing duration.
func Extract(snap model.Snapshot, now time.Time) model.Features {
	duration := now.Sub(snap.CreatedAt).Seconds()
	if duration < 0 {
		duration = 0
	}

	f := model.Features{
		MouseCount:      len(snap.Pointer),
		AvgMouseSpeed:   AvgSpeed(snap.Pointer),
		KeystrokeCount:  len(snap.Keys),
		SessionDuration: duration,
	}
	if duration > 0 {
		f.TypingSpeed = float64(f.KeystrokeCount) / duration
	}
	return f
}

// AvgSpeed is the mean of per-pair speeds (pixels/second) over consecutive
// pointer samples. Pairs without positive elapsed time are skipped.
func AvgSpeed(events []model.PointerEvent) float64 {
	if len(events) < 2 {
		return 0
	}

	var sum float64
	var pairs int
	for i := 1; i < len(events); i++ {
		dt := events[i].At.Sub(events[i-1].At).Seconds()
		if dt <= 0 {
			continue
		}
		dx := events[i].X - events[i-1].X
		dy := events[i].Y - events[i-1].Y
		sum += math.Hypot(dx, dy) / dt
		pairs++
	}

	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}
