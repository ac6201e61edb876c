package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("item not found")
	ErrVersionConflict   = errors.New("item version conflict")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)
