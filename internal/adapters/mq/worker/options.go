package worker

import (
	"sync/atomic"

	"github.com/okian/quizgate/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// withCounters shares the owning pool's counters.
func withCounters(processed, failed *atomic.Int64) Option {
	return func(w *InMemoryWorker) {
		if processed != nil {
			w.processed = processed
		}
		if failed != nil {
			w.failed = failed
		}
	}
}
