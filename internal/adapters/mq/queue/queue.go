// Package queue carries telemetry outcomes from the service to the worker
// pool.
//
// The service publishes one outcome per state transition and never blocks a
// request on telemetry: when the queue is full an outcome is dropped and
// counted.
package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Drop reasons, also used as metric labels.
const (
	ReasonQueueFull = "queue_full"
	ReasonClosed    = "closed"
	ReasonCancelled = "context_cancelled"
	ReasonEvicted   = "evicted"
)

// Publisher accepts outcomes without blocking.
type Publisher interface {
	// Publish returns ErrQueueFull, ErrClosed or the context error when the
	// outcome was not accepted.
	Publish(ctx context.Context, o model.Outcome) error
}

// Subscriber hands outcomes to consumers.
type Subscriber interface {
	// Outcomes returns a channel closed once the queue is closed and drained
	// or ctx is done.
	Outcomes(ctx context.Context) <-chan model.Outcome
}

// OutcomeQueue is a bounded, channel-backed Publisher and Subscriber.
type OutcomeQueue struct {
	outcomes   chan model.Outcome
	capacity   int
	dropOldest bool

	mu     sync.RWMutex
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
}

var (
	_ Publisher  = (*OutcomeQueue)(nil)
	_ Subscriber = (*OutcomeQueue)(nil)
)

// NewOutcomeQueue creates a queue with configuration options.
func NewOutcomeQueue(opts ...Option) *OutcomeQueue {
	q := &OutcomeQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.outcomes = make(chan model.Outcome, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Publish implements Publisher.
func (q *OutcomeQueue) Publish(ctx context.Context, o model.Outcome) error { //nolint:gocritic // hugeParam: Outcome is copied into the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(ReasonClosed)
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		q.drop(ReasonCancelled)
		return fmt.Errorf("publish outcome: %w", err)
	}

	if q.offer(o) {
		return nil
	}
	if q.dropOldest {
		select {
		case <-q.outcomes:
			q.drop(ReasonEvicted)
		default:
		}
		if q.offer(o) {
			return nil
		}
	}
	q.drop(ReasonQueueFull)
	metrics.RecordErrorByComponent("queue", ReasonQueueFull)
	return ErrQueueFull
}

func (q *OutcomeQueue) offer(o model.Outcome) bool { //nolint:gocritic // hugeParam: see Publish
	select {
	case q.outcomes <- o:
		q.published.Add(1)
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.outcomes))
		return true
	default:
		return false
	}
}

func (q *OutcomeQueue) drop(reason string) {
	q.dropped.Add(1)
	metrics.RecordQueueEnqueueError(reason)
}

// Outcomes implements Subscriber. Each call starts a forwarding goroutine
// that records dequeue metrics.
func (q *OutcomeQueue) Outcomes(ctx context.Context) <-chan model.Outcome {
	out := make(chan model.Outcome)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case o, ok := <-q.outcomes:
				if !ok {
					return
				}
				select {
				case out <- o:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.outcomes))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of buffered outcomes.
func (q *OutcomeQueue) Len() int {
	return len(q.outcomes)
}

// Published returns how many outcomes were accepted.
func (q *OutcomeQueue) Published() int64 {
	return q.published.Load()
}

// Dropped returns how many outcomes were rejected or evicted.
func (q *OutcomeQueue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting outcomes. Buffered outcomes remain readable.
func (q *OutcomeQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		close(q.outcomes)
		q.closed = true
	}
	return nil
}
