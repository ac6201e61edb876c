// Package cache provides the key-value and sorted-set client the leaderboard
// is built on, backed by Redis or by an in-process store.
package cache

import (
	"context"
	"time"
)

// Client is the subset of Redis semantics the leaderboard relies on.
type Client interface {
	// ZAdd adds member to the sorted set at key, or updates its score.
	ZAdd(ctx context.Context, key, member string, score float64) error
	// ZRevRange returns members ranked start..stop (inclusive, negative
	// indexes count from the end) by descending score. A missing key yields
	// an empty slice.
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// ZRem removes members from the sorted set. Absent members are ignored.
	ZRem(ctx context.Context, key string, members ...string) error

	// Get returns the value at key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// MGet returns one slot per key, nil where the key is absent.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	// Set stores value at key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys of any type. Absent keys are ignored.
	Del(ctx context.Context, keys ...string) error
	// Exists reports whether key holds a value of any type.
	Exists(ctx context.Context, key string) (bool, error)
	// Rename atomically moves src to dst, replacing dst. Returns ErrNoSuchKey
	// when src does not exist.
	Rename(ctx context.Context, src, dst string) error

	Ping(ctx context.Context) error
	Close() error
}
