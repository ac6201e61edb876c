package cache

import "errors"

// Sentinel kinds for cache client errors.
var (
	ErrNoSuchKey = errors.New("no such key")
	ErrClosed    = errors.New("cache client closed")
)

// ErrWrongType mirrors Redis WRONGTYPE for the in-memory backend.
var ErrWrongType = errors.New("operation against a key holding the wrong kind of value")
