package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/okian/quizgate/internal/domain/challenge"
	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/pkg/metrics"
	"golang.org/x/time/rate"
)

// Sharded, in-memory Store implementation.
//
// Lock order: shard lock, then session lock. Neither is held while calling
// out of the package except for the verify callback of Resolve, which runs
// under the session lock only.

const (
	defaultShardCount            = 16
	defaultMaxEvents             = 10_000
	defaultTrackRate             = rate.Limit(100)
	defaultTrackBurst            = 200
	defaultMetricsUpdateInterval = 5 * time.Second
)

type session struct {
	mu sync.Mutex

	// immutable after creation
	id        string
	createdAt time.Time
	client    model.ClientInfo
	limiter   *rate.Limiter

	pointer   []model.PointerEvent
	keys      []model.KeyEvent
	challenge challenge.Challenge
	expired   bool
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*session
	expiry   expiryIndex
}

// SessionStore is a sharded map of sessions with a lock per session.
type SessionStore struct {
	shards     []*shard
	shardCount int

	now                   func() time.Time
	maxEvents             int
	trackRate             rate.Limit
	trackBurst            int
	metricsUpdateInterval time.Duration

	sessions    atomic.Int64
	outstanding atomic.Int64

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*SessionStore)(nil)

// NewSessionStore constructs a store and starts its metrics updater, which
// stops when ctx is done or Close is called.
func NewSessionStore(ctx context.Context, opts ...Option) *SessionStore {
	s := &SessionStore{
		shardCount:            defaultShardCount,
		now:                   time.Now,
		maxEvents:             defaultMaxEvents,
		trackRate:             defaultTrackRate,
		trackBurst:            defaultTrackBurst,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*session)}
	}

	s.startMetricsUpdater(ctx)
	return s
}

// Close stops background goroutines.
func (s *SessionStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *SessionStore) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

// lookup returns the live session locked. The caller must unlock it.
func (s *SessionStore) lookup(id string) (*session, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	sess, ok := sh.sessions[id]
	sh.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	sess.mu.Lock()
	if sess.expired {
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// Create implements Store.
func (s *SessionStore) Create(_ context.Context, client model.ClientInfo) (SessionInfo, error) {
	sess := &session{
		id:        uuid.NewString(),
		createdAt: s.now(),
		client:    client,
	}
	if s.trackRate > 0 {
		sess.limiter = rate.NewLimiter(s.trackRate, s.trackBurst)
	}

	sh := s.shardFor(sess.id)
	sh.mu.Lock()
	sh.sessions[sess.id] = sess
	sh.expiry.add(sess.id, sess.createdAt)
	sh.mu.Unlock()
	s.sessions.Add(1)

	return SessionInfo{ID: sess.id, CreatedAt: sess.createdAt, Client: client}, nil
}

// Track implements Store.
func (s *SessionStore) Track(_ context.Context, id string, in model.Interaction) error {
	if in.Type != model.EventMouse && in.Type != model.EventKeyboard {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, in.Type)
	}

	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	now := s.now()
	if s.maxEvents > 0 && len(sess.pointer)+len(sess.keys) >= s.maxEvents {
		return fmt.Errorf("%w: %d events", ErrEventLimit, s.maxEvents)
	}
	if sess.limiter != nil && !sess.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}

	switch in.Type {
	case model.EventMouse:
		sess.pointer = append(sess.pointer, model.PointerEvent{X: in.X, Y: in.Y, At: now})
	case model.EventKeyboard:
		sess.keys = append(sess.keys, model.KeyEvent{Key: in.Key, At: now})
	}
	return nil
}

// Snapshot implements Store.
func (s *SessionStore) Snapshot(_ context.Context, id string) (model.Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer sess.mu.Unlock()

	return model.Snapshot{
		SessionID: sess.id,
		CreatedAt: sess.createdAt,
		Pointer:   append([]model.PointerEvent(nil), sess.pointer...),
		Keys:      append([]model.KeyEvent(nil), sess.keys...),
	}, nil
}

// Issue implements Store.
func (s *SessionStore) Issue(_ context.Context, id string, create func() challenge.Challenge) (challenge.Challenge, bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, false, err
	}
	defer sess.mu.Unlock()

	if sess.challenge != nil {
		return sess.challenge, false, nil
	}
	sess.challenge = create()
	s.outstanding.Add(1)
	return sess.challenge, true, nil
}

// Resolve implements Store.
func (s *SessionStore) Resolve(_ context.Context, id string, verify func(challenge.Challenge) bool) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	if sess.challenge == nil {
		return fmt.Errorf("%w: %s", ErrNoChallenge, id)
	}
	if verify(sess.challenge) {
		sess.challenge = nil
		s.outstanding.Add(-1)
	}
	return nil
}

// Outstanding implements Store.
func (s *SessionStore) Outstanding(_ context.Context, id string) (challenge.Challenge, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return sess.challenge, nil
}

// Exists implements Store.
func (s *SessionStore) Exists(_ context.Context, id string) bool {
	sess, err := s.lookup(id)
	if err != nil {
		return false
	}
	sess.mu.Unlock()
	return true
}

// Sweep implements Store. Sessions created at or after cutoff are never
// touched, so sessions created while a sweep runs survive it.
func (s *SessionStore) Sweep(_ context.Context, cutoff time.Time) (int, int) {
	var removed, challenges int
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, id := range sh.expiry.expire(cutoff) {
			sess, ok := sh.sessions[id]
			if !ok {
				continue
			}
			sess.mu.Lock()
			sess.expired = true
			if sess.challenge != nil {
				sess.challenge = nil
				challenges++
			}
			sess.pointer, sess.keys = nil, nil
			sess.mu.Unlock()
			delete(sh.sessions, id)
			removed++
		}
		sh.mu.Unlock()
	}

	s.sessions.Add(int64(-removed))
	s.outstanding.Add(int64(-challenges))
	return removed, challenges
}

// Count implements Store.
func (s *SessionStore) Count(_ context.Context) int {
	return int(s.sessions.Load())
}

// CountChallenges implements Store.
func (s *SessionStore) CountChallenges(_ context.Context) int {
	return int(s.outstanding.Load())
}

// Devices implements Store.
func (s *SessionStore) Devices(_ context.Context) map[string]int {
	out := make(map[string]int)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, sess := range sh.sessions {
			out[sess.client.Device]++
		}
		sh.mu.RUnlock()
	}
	return out
}

// startMetricsUpdater publishes session gauges on a fixed interval.
func (s *SessionStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *SessionStore) updateMetrics() {
	metrics.UpdateActiveSessions(s.Count(context.Background()))
	metrics.UpdateOutstandingChallenges(s.CountChallenges(context.Background()))
}
