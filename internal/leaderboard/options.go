package leaderboard

import "time"

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithDetailTTL sets the lifetime of detail entries.
func WithDetailTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.detailTTL = ttl
		}
	}
}

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}
