// Package dedupe tracks client-supplied event IDs so retried track calls
// are applied at most once.
package dedupe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50_000

// Deduper records seen event IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen list, allowing it to be retried.
	// Used when an event was marked as seen but then rejected (e.g. rate
	// limited).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// lruDeduper implements Deduper on a bounded, thread-safe LRU cache.
type lruDeduper struct {
	maxSize int
	seen    *lru.Cache[string, struct{}]
}

// NewInMemoryDeduper creates a new bounded deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &lruDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	// lru.New only fails for non-positive sizes, which options rule out.
	cache, err := lru.New[string, struct{}](d.maxSize)
	if err != nil {
		panic(err)
	}
	d.seen = cache
	return d
}

// Key scopes an event ID to its session.
func Key(sessionID, eventID string) string {
	return sessionID + "/" + eventID
}

// SeenAndRecord implements Deduper.
func (d *lruDeduper) SeenAndRecord(_ context.Context, id string) bool {
	found, _ := d.seen.ContainsOrAdd(id, struct{}{})
	return found
}

// Unrecord implements Deduper.
func (d *lruDeduper) Unrecord(_ context.Context, id string) {
	d.seen.Remove(id)
}

// Size returns the current number of entries in the deduper.
func (d *lruDeduper) Size() int64 {
	return int64(d.seen.Len())
}
