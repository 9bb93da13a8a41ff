package repository

import (
	"time"

	"golang.org/x/time/rate"
)

// Option applies a configuration option to the SessionStore.
type Option func(*SessionStore)

// WithShardCount sets the number of map shards.
func WithShardCount(n int) Option {
	return func(s *SessionStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithClock sets the clock used to stamp sessions and events.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxEvents caps the pointer plus key events a session may hold.
// Zero disables the cap.
func WithMaxEvents(n int) Option {
	return func(s *SessionStore) {
		if n >= 0 {
			s.maxEvents = n
		}
	}
}

// WithTrackRate limits track calls per session. A zero limit disables
// rate limiting.
func WithTrackRate(limit rate.Limit, burst int) Option {
	return func(s *SessionStore) {
		if limit >= 0 && burst >= 0 {
			s.trackRate = limit
			s.trackBurst = burst
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background gauge updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *SessionStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
