package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/pkg/metrics"
	"github.com/uptrace/bun"
)

const defaultStoreTimeout = 2 * time.Second

type itemRow struct {
	bun.BaseModel `bun:"table:hot_items,alias:hi"`

	ID        string    `bun:"id,pk"`
	Content   string    `bun:"content,notnull"`
	UserID    string    `bun:"user_id,notnull"`
	Likes     int64     `bun:"likes,notnull"`
	Version   int64     `bun:"version,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (r *itemRow) toModel() model.Item {
	return model.Item{
		ID:        r.ID,
		Content:   r.Content,
		OwnerID:   r.UserID,
		Likes:     r.Likes,
		Version:   r.Version,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func toModels(rows []itemRow) []model.Item {
	out := make([]model.Item, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}

// BunStore implements Store on any database bun supports.
type BunStore struct {
	db      bun.IDB
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// NewBunStore wraps db. Call CreateSchema before first use on a fresh database.
func NewBunStore(db bun.IDB, opts ...Option) *BunStore {
	s := &BunStore{
		db:      db,
		timeout: defaultStoreTimeout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSchema creates the items table and its likes index if missing.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.NewCreateTable().Model((*itemRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create hot_items table: %w", err)
	}
	_, err := s.db.NewCreateIndex().
		Model((*itemRow)(nil)).
		Index("hot_items_likes_idx").
		Column("likes").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create likes index: %w", err)
	}
	return nil
}

func (s *BunStore) Insert(ctx context.Context, content, ownerID string) (model.Item, error) {
	const op = "insert"
	ctx, done := s.begin(ctx, op)
	defer done()

	now := s.stamp()
	row := itemRow{
		ID:        s.newID(),
		Content:   content,
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		metrics.RecordStoreError(op)
		return model.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return row.toModel(), nil
}

func (s *BunStore) GetByID(ctx context.Context, id string) (model.Item, error) {
	const op = "get_by_id"
	ctx, done := s.begin(ctx, op)
	defer done()

	return s.getByID(ctx, op, id)
}

func (s *BunStore) getByID(ctx context.Context, op, id string) (model.Item, error) {
	var row itemRow
	err := s.db.NewSelect().Model(&row).Where("hi.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		metrics.RecordStoreError(op)
		return model.Item{}, fmt.Errorf("select item %s: %w", id, err)
	}
	return row.toModel(), nil
}

func (s *BunStore) UpdateWithVersion(ctx context.Context, item model.Item, expectedVersion int64) (model.Item, error) {
	const op = "update_with_version"
	ctx, done := s.begin(ctx, op)
	defer done()

	now := s.stamp()
	res, err := s.db.NewUpdate().
		Model((*itemRow)(nil)).
		Set("content = ?", item.Content).
		Set("likes = ?", item.Likes).
		Set("version = ?", expectedVersion+1).
		Set("updated_at = ?", now).
		Where("id = ?", item.ID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		metrics.RecordStoreError(op)
		return model.Item{}, fmt.Errorf("update item %s: %w", item.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		metrics.RecordStoreError(op)
		return model.Item{}, fmt.Errorf("update item %s: %w", item.ID, err)
	}
	if n == 0 {
		if _, err := s.getByID(ctx, op, item.ID); err != nil {
			return model.Item{}, err
		}
		return model.Item{}, fmt.Errorf("item %s at version %d: %w", item.ID, expectedVersion, ErrVersionConflict)
	}

	item.Version = expectedVersion + 1
	item.UpdatedAt = now
	return item, nil
}

func (s *BunStore) GetByIDs(ctx context.Context, ids []string) ([]model.Item, error) {
	if len(ids) == 0 {
		return []model.Item{}, nil
	}
	const op = "get_by_ids"
	ctx, done := s.begin(ctx, op)
	defer done()

	var rows []itemRow
	if err := s.db.NewSelect().Model(&rows).Where("hi.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		metrics.RecordStoreError(op)
		return nil, fmt.Errorf("select items: %w", err)
	}
	return toModels(rows), nil
}

func (s *BunStore) TopNByScore(ctx context.Context, n int) ([]model.Item, error) {
	const op = "top_n_by_score"
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	ctx, done := s.begin(ctx, op)
	defer done()

	var rows []itemRow
	err := s.db.NewSelect().
		Model(&rows).
		Order("hi.likes DESC", "hi.id ASC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		metrics.RecordStoreError(op)
		return nil, fmt.Errorf("select top items: %w", err)
	}
	return toModels(rows), nil
}

func (s *BunStore) TopLikedSince(ctx context.Context, since time.Time, n int) ([]model.Item, error) {
	const op = "top_liked_since"
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	ctx, done := s.begin(ctx, op)
	defer done()

	var rows []itemRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("hi.updated_at >= ?", since.UTC()).
		Order("hi.likes DESC", "hi.id ASC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		metrics.RecordStoreError(op)
		return nil, fmt.Errorf("select items since %s: %w", since.Format(time.RFC3339), err)
	}
	return toModels(rows), nil
}

// begin applies the store timeout and returns a func that records latency
// and releases the context.
func (s *BunStore) begin(ctx context.Context, op string) (context.Context, func()) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, func() {
		cancel()
		metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
	}
}

// stamp returns the current time at the precision every supported database keeps.
func (s *BunStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
