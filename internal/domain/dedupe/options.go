package dedupe

// Option configures a Deduper built by New.
type Option func(*memoryDeduper)

// WithMaxSize bounds the number of remembered keys. The oldest key is
// forgotten first. A value <= 0 keeps every key.
func WithMaxSize(maxSize int) Option {
	return func(d *memoryDeduper) {
		d.maxSize = maxSize
	}
}
