package citekit

import (
	"errors"
	"fmt"
)

// SetupError reports a session-creation failure: a style or locale resource
// that could not be fetched, or reference input that could not be parsed.
// Resource names what failed ("style/apa", "locale/en-US", "references").
type SetupError struct {
	Resource string
	Err      error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("session setup: %s: %v", e.Resource, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// IsSetupError reports whether err is (or wraps) a SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}
