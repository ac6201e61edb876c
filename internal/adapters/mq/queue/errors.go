package queue

import "errors"

// Enqueue refusals.
var (
	ErrFull   = errors.New("queue full")
	ErrClosed = errors.New("queue closed")
)
