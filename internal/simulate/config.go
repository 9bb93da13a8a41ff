package simulate

import (
	"errors"
	"fmt"
	"time"
)

// Modes understood by Run.
const (
	ModeOffline = "offline"
	ModeHTTP    = "http"
)

// Defaults for the simulator CLI.
const (
	DefaultBaseURL   = "http://localhost:5000"
	DefaultVisitors  = 200
	DefaultBotRatio  = 0.5
	DefaultWorkers   = 16
	DefaultTimeout   = 10 * time.Second
	DefaultTimeScale = 1.0
	DefaultSeed      = 42
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid simulator config")

// Config holds configuration for a simulation run.
type Config struct {
	Mode       string        // offline or http
	BaseURL    string        // base URL of the service in http mode
	Visitors   int           // number of simulated visitors
	BotRatio   float64       // share of visitors that are bots, in [0,1]
	Workers    int           // concurrent visitors in http mode
	Timeout    time.Duration // HTTP request timeout
	TimeScale  float64       // multiplier applied to real-time pacing in http mode
	Seed       int64         // seed for profile generation
	Answer     bool          // answer issued challenges using exposed answers
	OutputFile string        // optional JSON dump of generated profiles
	Verbose    bool
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeOffline,
		BaseURL:   DefaultBaseURL,
		Visitors:  DefaultVisitors,
		BotRatio:  DefaultBotRatio,
		Workers:   DefaultWorkers,
		Timeout:   DefaultTimeout,
		TimeScale: DefaultTimeScale,
		Seed:      DefaultSeed,
		Answer:    true,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch {
	case c.Mode != ModeOffline && c.Mode != ModeHTTP:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	case c.Visitors <= 0:
		return fmt.Errorf("%w: visitors must be positive", ErrInvalidConfig)
	case c.BotRatio < 0 || c.BotRatio > 1:
		return fmt.Errorf("%w: bot ratio must be in [0,1]", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.TimeScale <= 0:
		return fmt.Errorf("%w: time scale must be positive", ErrInvalidConfig)
	}
	return nil
}
