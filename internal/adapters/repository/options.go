package repository

import "time"

// Option applies a configuration option to the BunStore.
type Option func(*BunStore)

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(s *BunStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the time source used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *BunStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new item ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *BunStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}
