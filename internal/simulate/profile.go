package simulate

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/okian/quizgate/internal/domain/model"
)

// Human ranges.
const (
	humanMouseMin, humanMouseMax       = 20, 200
	humanSpeedMin, humanSpeedMax       = 100.0, 800.0
	humanKeysMin, humanKeysMax         = 30, 150
	humanTypingMin, humanTypingMax     = 2.0, 8.0
	humanDurationMin, humanDurationMax = 10.0, 120.0
)

// Bot ranges. Keys and typing come from one of two bands.
const (
	botMouseMin, botMouseMax           = 0, 20
	botSpeedMin, botSpeedMax           = 500.0, 2000.0
	botKeysLowMax                      = 50
	botKeysHighMin, botKeysHighMax     = 200, 500
	botTypingSlowMax                   = 1.0
	botTypingFastMin, botTypingFastMax = 15.0, 30.0
	botDurationMin, botDurationMax     = 0.0, 5.0
)

// Profile is the behavioural target of one simulated visitor.
type Profile struct {
	Bot             bool    `json:"bot"`
	MouseCount      int     `json:"mouse_movements"`
	AvgMouseSpeed   float64 `json:"avg_mouse_speed"`
	KeystrokeCount  int     `json:"keystroke_count"`
	TypingSpeed     float64 `json:"typing_speed"`
	SessionDuration float64 `json:"session_duration"`
}

// Features returns the profile as the feature vector the scorer sees.
func (p Profile) Features() model.Features {
	return model.Features{
		MouseCount:      p.MouseCount,
		AvgMouseSpeed:   p.AvgMouseSpeed,
		KeystrokeCount:  p.KeystrokeCount,
		TypingSpeed:     p.TypingSpeed,
		SessionDuration: p.SessionDuration,
	}
}

// Generator draws visitor profiles. It is not safe for concurrent use.
type Generator struct {
	rng      *rand.Rand
	botRatio float64
}

// NewGenerator returns a deterministic generator for seed.
func NewGenerator(seed int64, botRatio float64) *Generator {
	return &Generator{
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // synthetic traffic
		botRatio: botRatio,
	}
}

// Next draws one profile, a bot with probability botRatio.
func (g *Generator) Next() Profile {
	if g.rng.Float64() < g.botRatio {
		return g.Bot()
	}
	return g.Human()
}

// Batch draws n profiles.
func (g *Generator) Batch(n int) []Profile {
	out := make([]Profile, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Human draws a human-like profile.
func (g *Generator) Human() Profile {
	return Profile{
		MouseCount:      g.intn(humanMouseMin, humanMouseMax),
		AvgMouseSpeed:   g.uniform(humanSpeedMin, humanSpeedMax),
		KeystrokeCount:  g.intn(humanKeysMin, humanKeysMax),
		TypingSpeed:     g.uniform(humanTypingMin, humanTypingMax),
		SessionDuration: g.uniform(humanDurationMin, humanDurationMax),
	}
}

// Bot draws a bot-like profile.
func (g *Generator) Bot() Profile {
	p := Profile{
		Bot:             true,
		MouseCount:      g.intn(botMouseMin, botMouseMax),
		AvgMouseSpeed:   g.uniform(botSpeedMin, botSpeedMax),
		SessionDuration: g.uniform(botDurationMin, botDurationMax),
	}
	if g.rng.Intn(2) == 0 {
		p.KeystrokeCount = g.intn(0, botKeysLowMax)
	} else {
		p.KeystrokeCount = g.intn(botKeysHighMin, botKeysHighMax)
	}
	if g.rng.Intn(2) == 0 {
		p.TypingSpeed = g.uniform(0, botTypingSlowMax)
	} else {
		p.TypingSpeed = g.uniform(botTypingFastMin, botTypingFastMax)
	}
	return p
}

// intn returns an integer in [lo, hi].
func (g *Generator) intn(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Step is one interaction to send, offset from session start.
type Step struct {
	Offset time.Duration
	Type   model.EventType
	X, Y   float64
	Key    string
}

// Plan lays the profile out as a timeline of interactions. Pointer moves
// are spaced evenly across the session and step the requested distance so
// the observed average speed approximates the profile. Keystrokes are
// spaced at the profile's typing rate, capped to the session length.
func (p Profile) Plan(scale float64) []Step {
	duration := time.Duration(p.SessionDuration * scale * float64(time.Second))
	steps := make([]Step, 0, p.MouseCount+p.KeystrokeCount)

	if p.MouseCount > 0 {
		gap := duration / time.Duration(p.MouseCount)
		// distance per move in unscaled seconds
		stride := p.AvgMouseSpeed * gap.Seconds() / scale
		angle := math.Pi / 4
		var x, y float64
		for i := 0; i < p.MouseCount; i++ {
			steps = append(steps, Step{Offset: time.Duration(i) * gap, Type: model.EventMouse, X: x, Y: y})
			x += stride * math.Cos(angle)
			y += stride * math.Sin(angle)
			angle = -angle
		}
	}

	if p.KeystrokeCount > 0 {
		gap := duration / time.Duration(p.KeystrokeCount)
		if p.TypingSpeed > 0 {
			if rateGap := time.Duration(scale * float64(time.Second) / p.TypingSpeed); rateGap < gap {
				gap = rateGap
			}
		}
		for i := 0; i < p.KeystrokeCount; i++ {
			steps = append(steps, Step{
				Offset: time.Duration(i) * gap,
				Type:   model.EventKeyboard,
				Key:    string(rune('a' + i%26)),
			})
		}
	}

	slices.SortStableFunc(steps, func(a, b Step) int { return cmp.Compare(a.Offset, b.Offset) })
	return steps
}
