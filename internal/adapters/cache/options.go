package cache

import "time"

// MemoryOption applies a configuration option to the MemoryClient.
type MemoryOption func(*MemoryClient)

// WithCapacity bounds how many plain values the in-memory backend keeps.
func WithCapacity(capacity int) MemoryOption {
	return func(c *MemoryClient) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithShards sets the number of value-store shards.
func WithShards(shards int) MemoryOption {
	return func(c *MemoryClient) {
		if shards > 0 {
			c.shards = shards
		}
	}
}

// WithMaxTTL caps the lifetime of every plain value, including those set
// without a TTL.
func WithMaxTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryClient) {
		if ttl > 0 {
			c.maxTTL = ttl
		}
	}
}

// WithClock overrides the time source used for per-value TTLs.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryClient) {
		if now != nil {
			c.now = now
		}
	}
}
