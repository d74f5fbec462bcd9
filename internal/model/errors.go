package model

import "fmt"

// InputError describes a request that is rejected before any work starts:
// malformed JSON, a missing field, an out-of-range value or an unusable URL.
type InputError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *InputError) Unwrap() error {
	return e.Err
}
