// Package dedupe defines the interface for idempotency tracking.
package dedupe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50_000

// Deduper records applied change keys so replays can be skipped.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id, used when a recorded change failed to apply.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// lruDeduper bounds memory by evicting the least recently recorded key.
type lruDeduper struct {
	maxSize int
	seen    *lru.Cache[string, struct{}]
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &lruDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	// lru.New only fails for a non-positive size, which options prevent.
	seen, err := lru.New[string, struct{}](d.maxSize)
	if err != nil {
		panic(err)
	}
	d.seen = seen
	return d
}

func (d *lruDeduper) SeenAndRecord(_ context.Context, id string) bool {
	ok, _ := d.seen.ContainsOrAdd(id, struct{}{})
	return ok
}

func (d *lruDeduper) Unrecord(_ context.Context, id string) {
	d.seen.Remove(id)
}

func (d *lruDeduper) Size() int64 {
	return int64(d.seen.Len())
}
