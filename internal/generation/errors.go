package generation

import "errors"

// Common errors returned by processors
var (
	// ErrGenerationFailed is returned when a processor fails for any general reason
	ErrGenerationFailed = errors.New("failed to process task")

	// ErrInvalidResponse is returned when the provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during processing")

	// ErrInvalidConfig is returned when the processor configuration is invalid
	ErrInvalidConfig = errors.New("invalid processor configuration")
)

// IsPermanent reports whether retrying err cannot help.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrContentBlocked) ||
		errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrInvalidConfig)
}
