package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/model"
	"golang.org/x/time/rate"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts ...Option) (*SessionStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithShardCount(4)}, opts...)
	s := NewSessionStore(context.Background(), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func ack(id string) challenge.Challenge {
	return challenge.TimedAck{Meta: challenge.Meta{ID: id, TimeLimit: 30 * time.Second}}
}

func TestSessionStore_TrackAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	info, err := store.Create(ctx, model.ClientInfo{Device: "desktop"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ID == "" {
		t.Fatal("expected a session id")
	}

	for i := 0; i < 3; i++ {
		clock.Advance(100 * time.Millisecond)
		if err := store.Track(ctx, info.ID, model.Interaction{Type: model.EventMouse, X: float64(i), Y: 1}); err != nil {
			t.Fatalf("track mouse: %v", err)
		}
	}
	if err := store.Track(ctx, info.ID, model.Interaction{Type: model.EventKeyboard, Key: "a"}); err != nil {
		t.Fatalf("track key: %v", err)
	}

	snap, err := store.Snapshot(ctx, info.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Pointer) != 3 || len(snap.Keys) != 1 {
		t.Fatalf("expected 3 pointer and 1 key events, got %d and %d", len(snap.Pointer), len(snap.Keys))
	}
	if !snap.Pointer[2].At.Equal(info.CreatedAt.Add(300 * time.Millisecond)) {
		t.Errorf("events should carry server time, got %v", snap.Pointer[2].At)
	}

	// Snapshot must be a copy.
	snap.Pointer[0].X = 999
	again, _ := store.Snapshot(ctx, info.ID)
	if again.Pointer[0].X == 999 {
		t.Error("snapshot aliases store state")
	}
}

func TestSessionStore_TrackErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown session", func(t *testing.T) {
		store, _ := newTestStore(t)
		err := store.Track(ctx, "missing", model.Interaction{Type: model.EventMouse})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown event type", func(t *testing.T) {
		store, _ := newTestStore(t)
		info, _ := store.Create(ctx, model.ClientInfo{})
		err := store.Track(ctx, info.ID, model.Interaction{Type: "scroll"})
		if !errors.Is(err, ErrUnknownEventType) {
			t.Fatalf("expected ErrUnknownEventType, got %v", err)
		}
	})

	t.Run("event cap", func(t *testing.T) {
		store, _ := newTestStore(t, WithMaxEvents(2), WithTrackRate(0, 0))
		info, _ := store.Create(ctx, model.ClientInfo{})
		for i := 0; i < 2; i++ {
			if err := store.Track(ctx, info.ID, model.Interaction{Type: model.EventKeyboard, Key: "k"}); err != nil {
				t.Fatalf("track %d: %v", i, err)
			}
		}
		err := store.Track(ctx, info.ID, model.Interaction{Type: model.EventKeyboard, Key: "k"})
		if !errors.Is(err, ErrEventLimit) {
			t.Fatalf("expected ErrEventLimit, got %v", err)
		}
	})

	t.Run("rate limit refills with the clock", func(t *testing.T) {
		store, clock := newTestStore(t, WithTrackRate(rate.Limit(10), 2))
		info, _ := store.Create(ctx, model.ClientInfo{})
		in := model.Interaction{Type: model.EventMouse}
		for i := 0; i < 2; i++ {
			if err := store.Track(ctx, info.ID, in); err != nil {
				t.Fatalf("burst %d: %v", i, err)
			}
		}
		if err := store.Track(ctx, info.ID, in); !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		clock.Advance(time.Second)
		if err := store.Track(ctx, info.ID, in); err != nil {
			t.Fatalf("expected refill after a second, got %v", err)
		}
	})
}

func TestSessionStore_IssueAndResolve(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	info, _ := store.Create(ctx, model.ClientInfo{})

	ch, created, err := store.Issue(ctx, info.ID, func() challenge.Challenge { return ack("first") })
	if err != nil || !created || ch.Info().ID != "first" {
		t.Fatalf("first issue: ch=%v created=%v err=%v", ch, created, err)
	}

	// At most one outstanding challenge.
	ch, created, err = store.Issue(ctx, info.ID, func() challenge.Challenge { return ack("second") })
	if err != nil || created || ch.Info().ID != "first" {
		t.Fatalf("second issue should return the existing challenge: ch=%v created=%v err=%v", ch, created, err)
	}
	if n := store.CountChallenges(ctx); n != 1 {
		t.Fatalf("expected 1 outstanding, got %d", n)
	}

	// Failed verification keeps the challenge.
	if err := store.Resolve(ctx, info.ID, func(challenge.Challenge) bool { return false }); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out, _ := store.Outstanding(ctx, info.ID); out == nil {
		t.Fatal("challenge should survive a failed attempt")
	}

	// Successful verification clears it.
	if err := store.Resolve(ctx, info.ID, func(challenge.Challenge) bool { return true }); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out, _ := store.Outstanding(ctx, info.ID); out != nil {
		t.Fatal("challenge should be cleared after success")
	}
	if err := store.Resolve(ctx, info.ID, func(challenge.Challenge) bool { return true }); !errors.Is(err, ErrNoChallenge) {
		t.Fatalf("expected ErrNoChallenge, got %v", err)
	}
	if n := store.CountChallenges(ctx); n != 0 {
		t.Fatalf("expected 0 outstanding, got %d", n)
	}
}

func TestSessionStore_ConcurrentResolve(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	info, _ := store.Create(ctx, model.ClientInfo{})
	_, _, _ = store.Issue(ctx, info.ID, func() challenge.Challenge { return ack("c") })

	var wg sync.WaitGroup
	var mu sync.Mutex
	passed, missing := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Resolve(ctx, info.ID, func(challenge.Challenge) bool { return true })
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				passed++
			case errors.Is(err, ErrNoChallenge):
				missing++
			}
		}()
	}
	wg.Wait()

	if passed != 1 || missing != 19 {
		t.Fatalf("expected exactly one winner, got passed=%d missing=%d", passed, missing)
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	old, _ := store.Create(ctx, model.ClientInfo{Device: "bot"})
	_, _, _ = store.Issue(ctx, old.ID, func() challenge.Challenge { return ack("old") })

	clock.Advance(601 * time.Second)
	fresh, _ := store.Create(ctx, model.ClientInfo{Device: "mobile"})

	cutoff := clock.Now().Add(-600 * time.Second)
	sessions, challenges := store.Sweep(ctx, cutoff)
	if sessions != 1 || challenges != 1 {
		t.Fatalf("expected 1 session and 1 challenge swept, got %d and %d", sessions, challenges)
	}

	if _, err := store.Snapshot(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session should be gone, got %v", err)
	}
	if _, err := store.Outstanding(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired challenge should be gone, got %v", err)
	}
	if _, err := store.Snapshot(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh session should survive: %v", err)
	}
	if store.Exists(ctx, old.ID) || !store.Exists(ctx, fresh.ID) {
		t.Fatalf("Exists should track liveness: old=%v fresh=%v", store.Exists(ctx, old.ID), store.Exists(ctx, fresh.ID))
	}
	if store.Count(ctx) != 1 || store.CountChallenges(ctx) != 0 {
		t.Fatalf("unexpected counts: sessions=%d challenges=%d", store.Count(ctx), store.CountChallenges(ctx))
	}
	if d := store.Devices(ctx); d["mobile"] != 1 || d["bot"] != 0 {
		t.Fatalf("unexpected devices: %v", d)
	}
}

func TestSessionStore_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, WithTrackRate(0, 0))

	const sessions = 32
	const events = 50
	ids := make([]string, sessions)
	for i := range ids {
		info, _ := store.Create(ctx, model.ClientInfo{})
		ids[i] = info.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for w := 0; w < 2; w++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for j := 0; j < events; j++ {
					_ = store.Track(ctx, id, model.Interaction{Type: model.EventMouse, X: float64(j)})
				}
			}(id)
		}
	}
	// Sweep with a cutoff before every session concurrently with writes.
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Sweep(ctx, time.Time{})
	}()
	wg.Wait()

	for _, id := range ids {
		snap, err := store.Snapshot(ctx, id)
		if err != nil {
			t.Fatalf("snapshot %s: %v", id, err)
		}
		if len(snap.Pointer) != 2*events {
			t.Fatalf("lost updates for %s: %d", id, len(snap.Pointer))
		}
	}
}
