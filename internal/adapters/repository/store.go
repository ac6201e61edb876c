// Package repository defines the durable item store and its bun-backed
// implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/hotitems/internal/domain/model"
)

// Store is the authoritative item storage.
type Store interface {
	// Insert persists a new item with zero likes and version 0. The store
	// assigns the id and timestamps.
	Insert(ctx context.Context, content, ownerID string) (model.Item, error)

	// GetByID returns ErrNotFound if the item is unknown.
	GetByID(ctx context.Context, id string) (model.Item, error)

	// UpdateWithVersion writes item if the stored version still equals
	// expectedVersion, bumping the version and updated_at. Returns
	// ErrVersionConflict on a stale version and ErrNotFound if the row is gone.
	UpdateWithVersion(ctx context.Context, item model.Item, expectedVersion int64) (model.Item, error)

	// GetByIDs returns the items that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]model.Item, error)

	// TopNByScore returns up to n items ordered by likes desc.
	TopNByScore(ctx context.Context, n int) ([]model.Item, error)

	// TopLikedSince returns up to n items updated at or after since, ordered
	// by likes desc.
	TopLikedSince(ctx context.Context, since time.Time, n int) ([]model.Item, error)
}
