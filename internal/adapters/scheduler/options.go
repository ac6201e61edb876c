package scheduler

import "github.com/okian/hotitems/pkg/logger"

// Option applies a configuration option to a scheduler.
type Option func(*options)

type options struct {
	logger logger.Logger
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("scheduler")
	}
	return o
}
