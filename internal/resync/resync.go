// Package resync rebuilds the leaderboard cache from the durable store.
//
// A run stages the most liked recent items under a temporary key and swaps
// it in with one rename, so readers never see a partial ranking and a failed
// run leaves the live ranking as it was.
package resync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/hotitems/internal/domain/apperr"
	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/internal/leaderboard"
	"github.com/okian/hotitems/pkg/logger"
	"github.com/okian/hotitems/pkg/metrics"
)

// Defaults for the rebuild window.
const (
	DefaultWindow  = 7 * 24 * time.Hour
	DefaultLimit   = 1000
	defaultTimeout = 2 * time.Minute
	discardTimeout = 5 * time.Second
)

// ErrAlreadyRunning is returned when a run is requested while one is active.
var ErrAlreadyRunning = errors.New("resync already running")

// Source reads the candidates for the rebuilt ranking.
type Source interface {
	TopLikedSince(ctx context.Context, since time.Time, n int) ([]model.Item, error)
}

// Board is the part of the leaderboard cache a rebuild writes to.
type Board interface {
	BeginStaging(ctx context.Context) (*leaderboard.Staging, error)
	AtomicReplace(ctx context.Context, s *leaderboard.Staging) error
}

// Result summarizes a successful run.
type Result struct {
	Since  time.Time
	Synced int
}

// Job rebuilds the leaderboard. Runs never overlap within one process.
type Job struct {
	source Source
	board  Board

	window  time.Duration
	limit   int
	timeout time.Duration
	now     func() time.Time

	running sync.Mutex
	logger  logger.Logger
}

// New returns a Job reading from source and writing to board.
func New(source Source, board Board, opts ...Option) *Job {
	j := &Job{
		source:  source,
		board:   board,
		window:  DefaultWindow,
		limit:   DefaultLimit,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = logger.Named("resync")
	}
	return j
}

// Trigger runs one rebuild bounded by the job timeout. It is the entry
// point for schedulers.
func (j *Job) Trigger() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_, err := j.Run(ctx)
	return err
}

// Run rebuilds the ranking from items updated within the window. An empty
// candidate set leaves the live ranking untouched.
func (j *Job) Run(ctx context.Context) (Result, error) {
	if !j.running.TryLock() {
		metrics.RecordResyncRun("skipped")
		return Result{}, ErrAlreadyRunning
	}
	defer j.running.Unlock()

	start := time.Now()
	res := Result{Since: j.now().UTC().Add(-j.window)}
	j.logger.Info(ctx, "resync started", logger.String("since", res.Since.Format(time.RFC3339)))

	synced, err := j.rebuild(ctx, res.Since)
	metrics.RecordResyncDuration(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordResyncRun("failed")
		j.logger.Error(ctx, "resync failed", logger.Duration("elapsed", time.Since(start)), logger.Error(err))
		return Result{}, err
	}

	res.Synced = synced
	metrics.RecordResyncRun("succeeded")
	metrics.RecordResyncItems(synced)
	j.logger.Info(ctx, "resync finished",
		logger.Int("synced", synced),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (j *Job) rebuild(ctx context.Context, since time.Time) (int, error) {
	const op = "resync.run"
	items, err := j.source.TopLikedSince(ctx, since, j.limit)
	if err != nil {
		return 0, apperr.E(apperr.KindStore, op, err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	staging, err := j.board.BeginStaging(ctx)
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if err := staging.Add(ctx, it); err != nil {
			j.discard(ctx, staging)
			return 0, err
		}
	}
	if err := j.board.AtomicReplace(ctx, staging); err != nil {
		j.discard(ctx, staging)
		return 0, err
	}
	return staging.Len(), nil
}

// discard drops the temp key on a fresh context so it runs even after ctx
// expired.
func (j *Job) discard(ctx context.Context, s *leaderboard.Staging) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := s.Discard(dctx); err != nil {
		j.logger.Warn(ctx, "discard staging failed", logger.Error(err))
	}
}
