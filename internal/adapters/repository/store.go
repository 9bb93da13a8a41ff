// Package repository holds the in-memory session store and its errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/model"
)

// SessionInfo describes a newly created session.
type SessionInfo struct {
	ID        string
	CreatedAt time.Time
	Client    model.ClientInfo
}

// Store owns session and outstanding-challenge lifecycle. Mutations of a
// single session are serialized; different sessions proceed independently.
type Store interface {
	// Create registers a new session.
	Create(ctx context.Context, client model.ClientInfo) (SessionInfo, error)

	// Track appends one interaction stamped with server time.
	// Returns ErrNotFound, ErrRateLimited, ErrEventLimit or ErrUnknownEventType.
	Track(ctx context.Context, id string, in model.Interaction) error

	// Snapshot returns a consistent copy of the session's events.
	Snapshot(ctx context.Context, id string) (model.Snapshot, error)

	// Issue records the challenge built by create unless one is already
	// outstanding, in which case the existing one is returned and created
	// is false.
	Issue(ctx context.Context, id string, create func() challenge.Challenge) (ch challenge.Challenge, created bool, err error)

	// Resolve runs verify against the outstanding challenge while holding
	// the session lock and clears the challenge when verify returns true.
	// Returns ErrNoChallenge if nothing is outstanding.
	Resolve(ctx context.Context, id string, verify func(challenge.Challenge) bool) error

	// Exists reports whether id names a live session.
	Exists(ctx context.Context, id string) bool

	// Outstanding returns the session's current challenge, or nil.
	Outstanding(ctx context.Context, id string) (challenge.Challenge, error)

	// Sweep removes sessions created before cutoff, along with their
	// challenges, and reports how many sessions and challenges went.
	Sweep(ctx context.Context, cutoff time.Time) (sessions int, challenges int)

	// Count returns the number of live sessions.
	Count(ctx context.Context) int

	// CountChallenges returns the number of outstanding challenges.
	CountChallenges(ctx context.Context) int

	// Devices tallies live sessions by client device class.
	Devices(ctx context.Context) map[string]int
}
