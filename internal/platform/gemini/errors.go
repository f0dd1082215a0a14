package gemini

import "errors"

// ErrEmptyPrompt is returned when the prompt template renders to nothing.
var ErrEmptyPrompt = errors.New("rendered prompt is empty")
