// Package leaderboard owns the cached hot items ranking: one sorted set of
// item ids scored by likes, plus a JSON detail entry per item.
//
// Every operation returns errors tagged apperr.KindCache. Callers on the
// request path log and degrade; only the resync rebuild treats them as fatal.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/hotitems/internal/adapters/cache"
	"github.com/okian/hotitems/internal/domain/apperr"
	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/pkg/metrics"
)

// Key shapes shared with every other writer of the cache.
const (
	KeyHotItems     = "hot_items"
	KeyHotItemsTemp = "hot_items_temp"
	DetailKeyPrefix = "item:"
)

// Defaults.
const (
	DefaultDetailTTL = time.Hour
	defaultTimeout   = 500 * time.Millisecond
)

// ErrStagingMissing is returned when a swap finds no staged set to promote.
var ErrStagingMissing = errors.New("staging key missing")

// DetailKey returns the detail cache key for an item id.
func DetailKey(id string) string { return DetailKeyPrefix + id }

// Cache is the leaderboard view over a cache.Client. It holds no state of its
// own and is safe for concurrent use.
type Cache struct {
	client    cache.Client
	detailTTL time.Duration
	timeout   time.Duration
}

// New creates a leaderboard cache.
func New(client cache.Client, opts ...Option) *Cache {
	c := &Cache{
		client:    client,
		detailTTL: DefaultDetailTTL,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upsert writes the detail entry, then sets the item's score to its likes.
func (c *Cache) Upsert(ctx context.Context, item model.Item) error {
	const op = "leaderboard.upsert"
	if err := c.putDetail(ctx, op, item); err != nil {
		return err
	}
	return c.call(ctx, op, "zadd", func(ctx context.Context) error {
		return c.client.ZAdd(ctx, KeyHotItems, item.ID, float64(item.Likes))
	})
}

// Remove drops the item from the ranking and deletes its detail entry.
// Removing an unknown id is not an error.
func (c *Cache) Remove(ctx context.Context, id string) error {
	const op = "leaderboard.remove"
	if err := c.call(ctx, op, "zrem", func(ctx context.Context) error {
		return c.client.ZRem(ctx, KeyHotItems, id)
	}); err != nil {
		return err
	}
	return c.call(ctx, op, "del", func(ctx context.Context) error {
		return c.client.Del(ctx, DetailKey(id))
	})
}

// TopN returns up to n ids by descending score. An absent ranking is empty.
func (c *Cache) TopN(ctx context.Context, n int) ([]string, error) {
	const op = "leaderboard.top_n"
	if n <= 0 {
		return []string{}, nil
	}
	var ids []string
	err := c.call(ctx, op, "zrevrange", func(ctx context.Context) error {
		var err error
		ids, err = c.client.ZRevRange(ctx, KeyHotItems, 0, int64(n-1))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ReadDetails batch-reads detail entries. Hits keep the order of ids; ids
// whose entry is absent or undecodable are returned as misses.
func (c *Cache) ReadDetails(ctx context.Context, ids []string) ([]model.Item, []string, error) {
	const op = "leaderboard.read_details"
	if len(ids) == 0 {
		return []model.Item{}, []string{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = DetailKey(id)
	}

	var vals [][]byte
	err := c.call(ctx, op, "mget", func(ctx context.Context) error {
		var err error
		vals, err = c.client.MGet(ctx, keys...)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	hits := make([]model.Item, 0, len(ids))
	misses := make([]string, 0)
	for i, id := range ids {
		if i >= len(vals) || vals[i] == nil {
			misses = append(misses, id)
			continue
		}
		var item model.Item
		if err := json.Unmarshal(vals[i], &item); err != nil || item.ID != id {
			misses = append(misses, id)
			continue
		}
		hits = append(hits, item)
	}
	metrics.RecordDetailHits(len(hits))
	metrics.RecordDetailMisses(len(misses))
	return hits, misses, nil
}

// PutDetail refreshes only the detail entry.
func (c *Cache) PutDetail(ctx context.Context, item model.Item) error {
	return c.putDetail(ctx, "leaderboard.put_detail", item)
}

func (c *Cache) putDetail(ctx context.Context, op string, item model.Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return apperr.E(apperr.KindCache, op, fmt.Errorf("encode item %s: %w", item.ID, err))
	}
	return c.call(ctx, op, "set", func(ctx context.Context) error {
		return c.client.Set(ctx, DetailKey(item.ID), payload, c.detailTTL)
	})
}

// call bounds fn by the cache timeout and tags any failure.
func (c *Cache) call(ctx context.Context, op, cmd string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := fn(ctx)
	metrics.RecordCacheLatency(cmd, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordCacheError(cmd)
		return apperr.E(apperr.KindCache, op, err)
	}
	return nil
}
