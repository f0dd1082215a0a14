package domain

import "errors"

// ErrValidation is returned when a domain entity fails validation.
// It is usually wrapped with a more specific message.
var ErrValidation = errors.New("validation failed")
