// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Durations are expressed in integer seconds or milliseconds so the same
//   keys work in YAML and in environment variables.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/quizgate/internal/domain/risk"
	"github.com/okian/quizgate/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// ShardCount configures the number of shards in the session store.
	ShardCount int `koanf:"shard_count"`

	// SessionTTLSeconds is how long a session lives after creation.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// SweepIntervalSeconds is the period of the background sweeper.
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds"`

	// MaxEventsPerSession caps pointer plus key events per session; 0 disables.
	MaxEventsPerSession int `koanf:"max_events_per_session"`

	// TrackRatePerSecond and TrackBurst limit /track per session; a zero
	// rate disables the limit.
	TrackRatePerSecond float64 `koanf:"track_rate_per_second"`
	TrackBurst         int     `koanf:"track_burst"`

	// DedupeSize sets the size of the track event deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// TelemetryQueueSize bounds the in-memory outcome queue.
	TelemetryQueueSize int `koanf:"telemetry_queue_size"`

	// TelemetryDropOldest evicts the oldest queued outcome instead of
	// rejecting the newest when the queue is full.
	TelemetryDropOldest bool `koanf:"telemetry_drop_oldest"`

	// TelemetryWorkerCount sets the number of telemetry workers.
	TelemetryWorkerCount int `koanf:"telemetry_worker_count"`

	Thresholds Thresholds `koanf:"thresholds"`
	Scorer     Scorer     `koanf:"scorer"`
	Challenges Challenges `koanf:"challenges"`
	Pass       Pass       `koanf:"pass"`

	// ExposeAnswers includes correct answers in issued challenges.
	ExposeAnswers bool `koanf:"expose_answers"`

	// BankPath points at an optional YAML question bank.
	BankPath string `koanf:"bank_path"`

	// ShutdownTimeoutSeconds bounds graceful HTTP shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// Thresholds are the tier cut points.
type Thresholds struct {
	Low    float64 `koanf:"low"`
	Medium float64 `koanf:"medium"`
	High   float64 `koanf:"high"`
}

// Scorer configures the heuristic scorer and its circuit breaker.
type Scorer struct {
	TimeoutMS         int             `koanf:"timeout_ms"`
	BreakerFailures   uint32          `koanf:"breaker_failures"`
	BreakerCooldownMS int             `koanf:"breaker_cooldown_ms"`
	LatencyMinMS      int             `koanf:"latency_min_ms"`
	LatencyMaxMS      int             `koanf:"latency_max_ms"`
	Weights           scoring.Weights `koanf:"weights"`
	Steepness         float64         `koanf:"steepness"`
	Midpoint          float64         `koanf:"midpoint"`
}

// Challenges configures challenge generation and verification.
type Challenges struct {
	MultiQuestions    int `koanf:"multi_questions"`
	MultiPassingScore int `koanf:"multi_passing_score"`
	MinAckMS          int `koanf:"min_ack_ms"`
	MinQuizMS         int `koanf:"min_quiz_ms"`
}

// Pass configures access pass tokens. An empty secret means a random key
// per process.
type Pass struct {
	Secret     string `koanf:"secret"`
	TTLSeconds int    `koanf:"ttl_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	t := risk.DefaultThresholds()
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":5000",
		ShardCount:           16,
		SessionTTLSeconds:    600,
		SweepIntervalSeconds: 60,
		MaxEventsPerSession:  10_000,
		TrackRatePerSecond:   100,
		TrackBurst:           200,
		DedupeSize:           50_000,
		TelemetryQueueSize:   10_000,
		TelemetryWorkerCount: runtime.NumCPU(),
		Thresholds:           Thresholds{Low: t.Low, Medium: t.Medium, High: t.High},
		Scorer: Scorer{
			TimeoutMS:         250,
			BreakerFailures:   5,
			BreakerCooldownMS: 10_000,
			Weights:           scoring.DefaultWeights(),
			Steepness:         12,
			Midpoint:          0.30,
		},
		Challenges: Challenges{
			MultiQuestions:    3,
			MultiPassingScore: 2,
			MinAckMS:          500,
			MinQuizMS:         2000,
		},
		Pass:                   Pass{TTLSeconds: 300},
		ExposeAnswers:          true,
		ShutdownTimeoutSeconds: 10,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SessionTTLSeconds <= 0:
		return fmt.Errorf("%w: session_ttl_seconds must be positive", ErrInvalidConfig)
	case c.SweepIntervalSeconds < 0:
		return fmt.Errorf("%w: sweep_interval_seconds must not be negative", ErrInvalidConfig)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.TrackRatePerSecond < 0 || c.TrackBurst < 0:
		return fmt.Errorf("%w: track rate and burst must not be negative", ErrInvalidConfig)
	case c.Scorer.LatencyMaxMS < c.Scorer.LatencyMinMS:
		return fmt.Errorf("%w: scorer.latency_max_ms below latency_min_ms", ErrInvalidConfig)
	case c.Challenges.MultiPassingScore < 1 || c.Challenges.MultiPassingScore > c.Challenges.MultiQuestions:
		return fmt.Errorf("%w: challenges.multi_passing_score must be within 1..multi_questions", ErrInvalidConfig)
	}
	if err := c.RiskThresholds().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// RiskThresholds converts the configured cut points.
func (c *Config) RiskThresholds() risk.Thresholds {
	return risk.Thresholds{Low: c.Thresholds.Low, Medium: c.Thresholds.Medium, High: c.Thresholds.High}
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration { return seconds(c.SessionTTLSeconds) }

// SweepInterval returns the sweeper period.
func (c *Config) SweepInterval() time.Duration { return seconds(c.SweepIntervalSeconds) }

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration { return seconds(c.ShutdownTimeoutSeconds) }

// PassTTL returns the access pass lifetime.
func (c *Config) PassTTL() time.Duration { return seconds(c.Pass.TTLSeconds) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Millis converts a millisecond setting.
func Millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }
