// Package service implements the hot items use cases: creating and liking
// items against the durable store, and serving the ranked list from the
// leaderboard cache with a store fallback.
package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/okian/hotitems/internal/adapters/repository"
	"github.com/okian/hotitems/internal/domain/apperr"
	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/pkg/logger"
	"github.com/okian/hotitems/pkg/metrics"
)

// Defaults for the ranked read and the like retry policy.
const (
	DefaultHotLimit     = 10
	defaultMaxHotLimit  = 100
	defaultLikeAttempts = 3
)

// Store is the subset of the item store the service needs.
type Store interface {
	Insert(ctx context.Context, content, ownerID string) (model.Item, error)
	GetByID(ctx context.Context, id string) (model.Item, error)
	UpdateWithVersion(ctx context.Context, item model.Item, expectedVersion int64) (model.Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Item, error)
	TopNByScore(ctx context.Context, n int) ([]model.Item, error)
}

// Board is the subset of the leaderboard cache the service needs.
type Board interface {
	Upsert(ctx context.Context, item model.Item) error
	TopN(ctx context.Context, n int) ([]string, error)
	ReadDetails(ctx context.Context, ids []string) ([]model.Item, []string, error)
	PutDetail(ctx context.Context, item model.Item) error
}

// Service holds only client handles; concurrent calls share no mutable state.
type Service struct {
	store Store
	board Board

	likeAttempts int
	defaultLimit int
	maxLimit     int

	logger logger.Logger
}

// New constructs a Service over store and board.
func New(store Store, board Board, opts ...Option) *Service {
	s := &Service{
		store:        store,
		board:        board,
		likeAttempts: defaultLikeAttempts,
		defaultLimit: DefaultHotLimit,
		maxLimit:     defaultMaxHotLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("hot-items")
	}
	return s
}

// Create validates and persists a new item, then mirrors it into the cache.
func (s *Service) Create(ctx context.Context, content, ownerID string) (model.Item, error) {
	const op = "app.create"
	if err := (createRequest{Content: content, OwnerID: ownerID}).Validate(); err != nil {
		return model.Item{}, apperr.E(apperr.KindValidation, op, err)
	}

	item, err := s.store.Insert(ctx, content, ownerID)
	if err != nil {
		s.logger.Error(ctx, "create item failed", logger.String("user_id", ownerID), logger.Error(err))
		return model.Item{}, apperr.E(apperr.KindStore, op, err)
	}
	metrics.RecordItemCreated()
	s.mirror(ctx, item)

	s.logger.Info(ctx, "item created", logger.String("id", item.ID), logger.String("user_id", ownerID))
	return item, nil
}

// Like adds one like with an optimistic version check, re-reading and
// retrying on a conflict until the attempt budget is spent.
func (s *Service) Like(ctx context.Context, id string) (model.Item, error) {
	const op = "app.like"
	if strings.TrimSpace(id) == "" {
		return model.Item{}, apperr.Validation(op, "id must not be blank")
	}

	for attempt := 1; ; attempt++ {
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			return model.Item{}, classifyStoreErr(op, err)
		}

		updated, err := s.store.UpdateWithVersion(ctx, current.Liked(), current.Version)
		if err == nil {
			metrics.RecordItemLiked()
			s.mirror(ctx, updated)
			return updated, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return model.Item{}, classifyStoreErr(op, err)
		}

		metrics.RecordLikeConflict()
		if attempt >= s.likeAttempts {
			s.logger.Warn(ctx, "like gave up after version conflicts",
				logger.String("id", id), logger.Int("attempts", attempt))
			return model.Item{}, apperr.E(apperr.KindConflict, op, err)
		}
		s.logger.Debug(ctx, "like conflict, retrying", logger.String("id", id), logger.Int("attempt", attempt))
	}
}

// TopHot returns up to n items by likes desc. n <= 0 selects the default and
// n is capped at the configured maximum. Cache failures degrade to the store
// and are never visible to the caller; store failures are.
func (s *Service) TopHot(ctx context.Context, n int) ([]model.Item, error) {
	const op = "app.top_hot"
	n = s.limit(n)

	ids, err := s.board.TopN(ctx, n)
	if err != nil {
		return s.fallback(ctx, op, n, "cache_error", err)
	}
	if len(ids) == 0 {
		items, err := s.fallback(ctx, op, n, "empty", nil)
		if err != nil {
			return nil, err
		}
		s.repopulate(ctx, items)
		return items, nil
	}

	hits, misses, err := s.board.ReadDetails(ctx, ids)
	if err != nil {
		return s.fallback(ctx, op, n, "cache_error", err)
	}
	if len(misses) > 0 {
		metrics.RecordLeaderboardFallback("detail_miss")
		recovered, err := s.store.GetByIDs(ctx, misses)
		if err != nil {
			return nil, apperr.E(apperr.KindStore, op, err)
		}
		s.repopulate(ctx, recovered)
		hits = append(hits, recovered...)
	}

	slices.SortFunc(hits, model.ByLikesDesc)
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

// Limit reports the effective limit TopHot applies to n.
func (s *Service) Limit(n int) int { return s.limit(n) }

func (s *Service) limit(n int) int {
	if n <= 0 {
		n = s.defaultLimit
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	return n
}

func (s *Service) fallback(ctx context.Context, op string, n int, reason string, cause error) ([]model.Item, error) {
	metrics.RecordLeaderboardFallback(reason)
	if cause != nil {
		s.logger.Warn(ctx, "leaderboard cache unavailable, reading from store", logger.Error(cause))
	}
	items, err := s.store.TopNByScore(ctx, n)
	if err != nil {
		return nil, apperr.E(apperr.KindStore, op, err)
	}
	return items, nil
}

// mirror writes item through to the leaderboard; failures are logged only.
func (s *Service) mirror(ctx context.Context, item model.Item) {
	if err := s.board.Upsert(ctx, item); err != nil {
		s.logger.Warn(ctx, "leaderboard write-through failed", logger.String("id", item.ID), logger.Error(err))
	}
}

// repopulate refreshes detail entries only; the ranking is left to the
// write path, CDC and resync.
func (s *Service) repopulate(ctx context.Context, items []model.Item) {
	for _, it := range items {
		if err := s.board.PutDetail(ctx, it); err != nil {
			s.logger.Warn(ctx, "detail cache refill failed", logger.String("id", it.ID), logger.Error(err))
			return
		}
	}
}

func classifyStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.E(apperr.KindNotFound, op, err)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperr.E(apperr.KindConflict, op, err)
	default:
		return apperr.E(apperr.KindStore, op, err)
	}
}
