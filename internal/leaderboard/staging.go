package leaderboard

import (
	"context"
	"errors"

	"github.com/okian/hotitems/internal/domain/apperr"
	"github.com/okian/hotitems/internal/domain/model"
)

// Staging builds a replacement ranking under KeyHotItemsTemp. The live key is
// untouched until AtomicReplace.
type Staging struct {
	c     *Cache
	count int
	done  bool
}

// BeginStaging clears any leftover temp key and returns an empty builder.
func (c *Cache) BeginStaging(ctx context.Context) (*Staging, error) {
	if err := c.call(ctx, "leaderboard.begin_staging", "del", func(ctx context.Context) error {
		return c.client.Del(ctx, KeyHotItemsTemp)
	}); err != nil {
		return nil, err
	}
	return &Staging{c: c}, nil
}

// Add stages item in the temp ranking and refreshes its detail entry.
func (s *Staging) Add(ctx context.Context, item model.Item) error {
	const op = "leaderboard.stage"
	if s.done {
		return apperr.E(apperr.KindCache, op, errors.New("staging already finished"))
	}
	if err := s.c.call(ctx, op, "zadd", func(ctx context.Context) error {
		return s.c.client.ZAdd(ctx, KeyHotItemsTemp, item.ID, float64(item.Likes))
	}); err != nil {
		return err
	}
	if err := s.c.putDetail(ctx, op, item); err != nil {
		return err
	}
	s.count++
	return nil
}

// Len returns how many items were staged.
func (s *Staging) Len() int { return s.count }

// Discard deletes the temp key. It is a no-op once the staging was promoted.
func (s *Staging) Discard(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.c.call(ctx, "leaderboard.discard_staging", "del", func(ctx context.Context) error {
		return s.c.client.Del(ctx, KeyHotItemsTemp)
	})
}

// AtomicReplace promotes the staged ranking to the live key with a single
// rename, so readers see either the old ranking or the new one.
func (c *Cache) AtomicReplace(ctx context.Context, s *Staging) error {
	const op = "leaderboard.atomic_replace"
	if s == nil || s.done {
		return apperr.E(apperr.KindCache, op, errors.New("no open staging"))
	}

	var exists bool
	if err := c.call(ctx, op, "exists", func(ctx context.Context) error {
		var err error
		exists, err = c.client.Exists(ctx, KeyHotItemsTemp)
		return err
	}); err != nil {
		return err
	}
	if !exists {
		return apperr.E(apperr.KindCache, op, ErrStagingMissing)
	}

	if err := c.call(ctx, op, "rename", func(ctx context.Context) error {
		return c.client.Rename(ctx, KeyHotItemsTemp, KeyHotItems)
	}); err != nil {
		return err
	}
	s.done = true
	return nil
}
