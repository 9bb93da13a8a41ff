package queue

// Option applies a configuration option to the OutcomeQueue.
type Option func(*OutcomeQueue)

// WithCapacity sets the maximum number of buffered outcomes.
func WithCapacity(capacity int) Option {
	return func(q *OutcomeQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithDropOldest makes a full queue evict its oldest outcome to admit the
// new one instead of rejecting the new one.
func WithDropOldest() Option {
	return func(q *OutcomeQueue) {
		q.dropOldest = true
	}
}
