package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when no valid question could be
	// produced, after the validation retry was exhausted. No question can
	// be shown for this step.
	ErrGenerationFailed = errors.New("failed to generate question")

	// ErrInvalidResponse is returned when the synthesizer response cannot
	// be parsed or does not match the modal schema's structural shape.
	ErrInvalidResponse = errors.New("invalid response from content synthesizer")

	// ErrTransientFailure is returned for temporary synthesizer errors that
	// might resolve on retry (timeouts, unavailability).
	ErrTransientFailure = errors.New("transient error during question generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
