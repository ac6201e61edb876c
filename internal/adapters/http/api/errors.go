package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/hotitems/internal/domain/apperr"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// WrapKind tags err with op and the API error kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest, "validation_error"
	case apperr.KindNotFound:
		return http.StatusNotFound, "not_found"
	case apperr.KindConflict:
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
