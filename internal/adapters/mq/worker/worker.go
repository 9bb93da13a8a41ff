// Package worker drains the telemetry queue and folds outcomes into the
// ledger.
package worker

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/quizgate/internal/adapters/mq/queue"
	"github.com/okian/quizgate/internal/domain/model"
	"github.com/okian/quizgate/pkg/logger"
	"github.com/okian/quizgate/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Updater applies one outcome to a downstream aggregate.
type Updater interface {
	Apply(ctx context.Context, o model.Outcome) error
}

// Worker consumes outcomes until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker applies outcomes from a subscriber to an updater.
type InMemoryWorker struct {
	source  queue.Subscriber
	updater Updater
	name    string

	processed *atomic.Int64
	failed    *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(source queue.Subscriber, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:    source,
		updater:   updater,
		name:      "worker",
		processed: &atomic.Int64{},
		failed:    &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx is done, Shutdown is
// called, or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	outcomes := w.source.Outcomes(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case o, ok := <-outcomes:
			if !ok {
				return
			}
			if err := w.apply(ctx, o); err != nil {
				w.logger.Error(ctx, "error applying outcome",
					logger.String("kind", o.Kind.String()),
					logger.String("sessionID", o.SessionID),
					logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) apply(ctx context.Context, o model.Outcome) error { //nolint:gocritic // hugeParam: outcomes arrive by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.updater.Apply(ctx, o); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		return fmt.Errorf("apply %s outcome: %w", o.Kind, err)
	}
	w.processed.Add(1)
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	source  queue.Subscriber

	processed atomic.Int64
	failed    atomic.Int64
	started   atomic.Bool

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount means one
// worker per CPU.
func NewPool(workerCount int, source queue.Subscriber, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		source:  source,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range pool.workers {
		pool.workers[i] = NewInMemoryWorker(source, updater,
			WithName("worker-"+strconv.Itoa(i)),
			withCounters(&pool.processed, &pool.failed),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many outcomes the pool has applied.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns how many outcomes the updater rejected.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue when it is closable and waits for workers to
// drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
