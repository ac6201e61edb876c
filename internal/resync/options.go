package resync

import (
	"time"

	"github.com/okian/hotitems/pkg/logger"
)

// Option applies a configuration option to the Job.
type Option func(*Job)

// WithLogger sets a custom logger for the job.
func WithLogger(l logger.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithWindow sets how far back updated items are considered.
func WithWindow(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.window = d
		}
	}
}

// WithLimit bounds how many items a rebuilt ranking holds.
func WithLimit(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.limit = n
		}
	}
}

// WithTimeout bounds a run started by Trigger.
func WithTimeout(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.timeout = d
		}
	}
}

// WithClock overrides the time source used for the window.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}
