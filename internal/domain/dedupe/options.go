package dedupe

// Option applies a configuration option to the LRU deduper.
type Option func(*lruDeduper)

// WithMaxSize sets the maximum number of IDs to keep in memory. The least
// recently recorded IDs are evicted first. Non-positive values keep the
// default.
func WithMaxSize(maxSize int) Option {
	return func(d *lruDeduper) {
		if maxSize > 0 {
			d.maxSize = maxSize
		}
	}
}
