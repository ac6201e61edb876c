package cdc

import "errors"

// Decode failures. The first four mean the message is not a change event
// and is discarded; ErrMalformedField means it is one that cannot be used.
var (
	ErrEmptyPayload    = errors.New("empty payload")
	ErrNoObject        = errors.New("payload has no json object")
	ErrUnparseable     = errors.New("payload is not valid json")
	ErrUnknownEnvelope = errors.New("envelope has neither u nor d")
	ErrMalformedField  = errors.New("malformed change field")
)

// discardable reports whether err marks a message that carries no change.
func discardable(err error) bool {
	return errors.Is(err, ErrEmptyPayload) ||
		errors.Is(err, ErrNoObject) ||
		errors.Is(err, ErrUnparseable) ||
		errors.Is(err, ErrUnknownEnvelope)
}
