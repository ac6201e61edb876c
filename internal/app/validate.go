package service

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxContentLength = 2000
	maxOwnerIDLength = 128
)

type createRequest struct {
	Content string `json:"content"`
	OwnerID string `json:"user_id"`
}

// Validate checks the request after trimming surrounding whitespace.
func (r createRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	r.OwnerID = strings.TrimSpace(r.OwnerID)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.RuneLength(1, maxContentLength)),
		validation.Field(&r.OwnerID, validation.Required, validation.RuneLength(1, maxOwnerIDLength)),
	)
}
