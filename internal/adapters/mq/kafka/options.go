package kafka

import (
	"time"

	"github.com/okian/hotitems/pkg/logger"
)

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithLogger sets a custom logger for the source.
func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRetryBackoff sets the pause after a failed read.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.backoff = d
		}
	}
}
