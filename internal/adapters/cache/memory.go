package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

// Default in-memory backend settings.
const (
	defaultMemoryCapacity     = 100_000
	defaultMemoryShards       = 64
	defaultMemoryMaxTTL       = 24 * time.Hour
	defaultEvictionPercentage = 10
)

// entry is a stored value with its own deadline; sturdyc's TTL is only the
// upper bound.
type entry struct {
	data      []byte
	expiresAt time.Time
}

var _ Client = (*MemoryClient)(nil)

// MemoryClient is a single-process Client. Sorted sets live in treaps and
// plain values in a sturdyc cache. One mutex serialises every operation, so
// Rename is atomic with respect to readers.
type MemoryClient struct {
	mu     sync.Mutex
	zsets  map[string]*zset
	kv     *sturdyc.Client[entry]
	closed bool

	capacity int
	shards   int
	maxTTL   time.Duration
	now      func() time.Time
}

// NewMemoryClient builds an in-memory client.
func NewMemoryClient(opts ...MemoryOption) *MemoryClient {
	c := &MemoryClient{
		zsets:    make(map[string]*zset),
		capacity: defaultMemoryCapacity,
		shards:   defaultMemoryShards,
		maxTTL:   defaultMemoryMaxTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.kv = sturdyc.New[entry](c.capacity, c.shards, c.maxTTL, defaultEvictionPercentage)
	return c
}

func (c *MemoryClient) ZAdd(_ context.Context, key, member string, score float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, ok := c.getLocked(key); ok {
		return fmt.Errorf("zadd %s: %w", key, ErrWrongType)
	}
	z, ok := c.zsets[key]
	if !ok {
		z = newZSet()
		c.zsets[key] = z
	}
	z.add(member, score)
	return nil
}

func (c *MemoryClient) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	z, ok := c.zsets[key]
	if !ok {
		return []string{}, nil
	}
	return z.revRange(start, stop), nil
}

func (c *MemoryClient) ZRem(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	z, ok := c.zsets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		z.remove(m)
	}
	if z.len() == 0 {
		delete(c.zsets, key)
	}
	return nil
}

func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false, ErrClosed
	}
	if _, ok := c.zsets[key]; ok {
		return nil, false, fmt.Errorf("get %s: %w", key, ErrWrongType)
	}
	e, ok := c.getLocked(key)
	if !ok {
		return nil, false, nil
	}
	return clone(e.data), true, nil
}

func (c *MemoryClient) MGet(_ context.Context, keys ...string) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if e, ok := c.getLocked(k); ok {
			out[i] = clone(e.data)
		}
	}
	return out, nil
}

func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	delete(c.zsets, key)
	e := entry{data: clone(value)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.kv.Set(key, e)
	return nil
}

func (c *MemoryClient) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(c.zsets, k)
		c.kv.Delete(k)
	}
	return nil
}

func (c *MemoryClient) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	if _, ok := c.zsets[key]; ok {
		return true, nil
	}
	_, ok := c.getLocked(key)
	return ok, nil
}

func (c *MemoryClient) Rename(_ context.Context, src, dst string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if z, ok := c.zsets[src]; ok {
		c.kv.Delete(dst)
		c.zsets[dst] = z
		if src != dst {
			delete(c.zsets, src)
		}
		return nil
	}
	e, ok := c.getLocked(src)
	if !ok {
		return fmt.Errorf("rename %s: %w", src, ErrNoSuchKey)
	}
	delete(c.zsets, dst)
	c.kv.Delete(src)
	c.kv.Set(dst, e)
	return nil
}

func (c *MemoryClient) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *MemoryClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// getLocked returns the live value at key, dropping it if its own TTL passed.
func (c *MemoryClient) getLocked(key string) (entry, bool) {
	e, ok := c.kv.Get(key)
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.kv.Delete(key)
		return entry{}, false
	}
	return e, true
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
