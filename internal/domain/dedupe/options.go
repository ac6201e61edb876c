package dedupe

// Option applies a configuration option to the deduper.
type Option func(*lruDeduper)

// WithMaxSize bounds how many keys are remembered. Non-positive values are ignored.
func WithMaxSize(size int) Option {
	return func(d *lruDeduper) {
		if size > 0 {
			d.maxSize = size
		}
	}
}
