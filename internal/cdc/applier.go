package cdc

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/hotitems/internal/domain/dedupe"
	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/pkg/logger"
	"github.com/okian/hotitems/pkg/metrics"
)

// Outcome is the result of applying one message.
type Outcome int

const (
	// Applied: the cache reflects the change, or the change was a replay.
	Applied Outcome = iota + 1
	// Discarded: the message was not a change event.
	Discarded
	// Failed: the message was a change event that could not be applied.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Discarded:
		return "discarded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Board is the part of the leaderboard cache the applier writes to.
type Board interface {
	Upsert(ctx context.Context, item model.Item) error
	Remove(ctx context.Context, id string) error
}

// Applier mirrors item changes into the leaderboard cache.
type Applier struct {
	board  Board
	seen   dedupe.Deduper
	loc    *time.Location
	logger logger.Logger
}

// NewApplier returns an Applier writing to board.
func NewApplier(board Board, opts ...Option) *Applier {
	a := &Applier{board: board, loc: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Named("cdc")
	}
	return a
}

// Apply decodes payload and applies it. It never panics on bad input and
// reports failures through the returned Outcome only, so a consumer can
// always move on to the next message.
func (a *Applier) Apply(ctx context.Context, payload []byte) Outcome {
	start := time.Now()
	outcome := a.apply(ctx, payload)
	metrics.RecordCDCMessage(outcome.String(), float64(time.Since(start).Milliseconds()))
	return outcome
}

func (a *Applier) apply(ctx context.Context, payload []byte) Outcome {
	ev, err := Decode(payload, a.loc)
	if err != nil {
		return a.rejected(ctx, payload, err)
	}
	a.logger.Debug(ctx, "cdc change received",
		logger.String("kind", ev.Kind.String()),
		logger.String("id", ev.Item.ID),
		logger.String("payload", string(Clean(payload))))

	switch ev.Kind {
	case model.ChangeUpsert:
		key := changeKey(ev.Item)
		if a.seen != nil && a.seen.SeenAndRecord(ctx, key) {
			metrics.RecordCDCDuplicate()
			return Applied
		}
		if err := a.board.Upsert(ctx, ev.Item); err != nil {
			if a.seen != nil {
				a.seen.Unrecord(ctx, key)
			}
			a.failed(ctx, payload, ev, err)
			return Failed
		}
	case model.ChangeDelete:
		if err := a.board.Remove(ctx, ev.Item.ID); err != nil {
			a.failed(ctx, payload, ev, err)
			return Failed
		}
	}
	return Applied
}

func (a *Applier) rejected(ctx context.Context, payload []byte, err error) Outcome {
	switch {
	case !discardable(err):
		a.logger.Error(ctx, "cdc change is malformed",
			logger.String("payload", string(payload)),
			logger.String("cleaned", string(Clean(payload))),
			logger.Error(err))
		return Failed
	case len(payload) == 0:
		// Heartbeats and tombstones arrive empty.
		return Discarded
	default:
		a.logger.Warn(ctx, "cdc message ignored",
			logger.String("payload", string(payload)),
			logger.Error(err))
		return Discarded
	}
}

func (a *Applier) failed(ctx context.Context, payload []byte, ev model.ChangeEvent, err error) {
	a.logger.Error(ctx, "cdc change not applied",
		logger.String("kind", ev.Kind.String()),
		logger.String("id", ev.Item.ID),
		logger.String("payload", string(payload)),
		logger.String("cleaned", string(Clean(payload))),
		logger.Error(err))
}

// changeKey identifies an upsert image; versions only move forward, so a
// repeated key is a replay.
func changeKey(it model.Item) string {
	return fmt.Sprintf("upsert:%s:%d", it.ID, it.Version)
}
