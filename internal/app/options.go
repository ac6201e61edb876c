package service

import "github.com/okian/hotitems/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLikeAttempts bounds how many read-increment-write rounds Like makes.
// One attempt means a single conflict is returned to the caller.
func WithLikeAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.likeAttempts = n
		}
	}
}

// WithDefaultHotLimit sets the limit used when TopHot gets n <= 0.
func WithDefaultHotLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithMaxHotLimit caps TopHot's n.
func WithMaxHotLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}
