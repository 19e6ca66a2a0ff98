package resilience

import "errors"

var (
	// ErrMaxRetriesExceeded wraps the last failure once Retry gives up.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout reports that an attempt outlived its own deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
