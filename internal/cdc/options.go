package cdc

import (
	"time"

	"github.com/okian/hotitems/internal/domain/dedupe"
	"github.com/okian/hotitems/pkg/logger"
)

// Option applies a configuration option to the Applier.
type Option func(*Applier)

// WithLogger sets a custom logger for the applier.
func WithLogger(l logger.Logger) Option {
	return func(a *Applier) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDeduper skips upsert images that were already applied.
func WithDeduper(d dedupe.Deduper) Option {
	return func(a *Applier) {
		a.seen = d
	}
}

// WithLocation sets the zone naive timestamps are read in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(a *Applier) {
		if loc != nil {
			a.loc = loc
		}
	}
}
