package generation

import "errors"

// Errors returned by Generator implementations. Callers classify failures
// with errors.Is; implementations wrap these with detail.
var (
	// ErrGenerationFailed covers engine failures with no more specific cause.
	ErrGenerationFailed = errors.New("name generation failed")

	// ErrInvalidResponse means the engine answered but the payload could not be parsed.
	ErrInvalidResponse = errors.New("malformed response from generation engine")

	// ErrNoCandidates means the payload parsed but held no usable name.
	ErrNoCandidates = errors.New("generation engine returned no usable names")

	// ErrContentBlocked means the engine refused the prompt on safety grounds.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure marks errors worth retrying inside the engine client.
	ErrTransientFailure = errors.New("transient generation failure")

	// ErrInvalidConfig is returned when a generator cannot be built from its settings.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
