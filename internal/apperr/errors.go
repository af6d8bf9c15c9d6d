// Package apperr defines the error kinds surfaced to callers of the domain services.
// The HTTP layer maps them to status codes with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrRuleViolation = errors.New("business rule violation")
	ErrConflict      = errors.New("concurrent modification")
)

// NotFound builds an error wrapping ErrNotFound.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Violation builds an error wrapping ErrRuleViolation.
func Violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRuleViolation, fmt.Sprintf(format, args...))
}

// Conflict builds an error wrapping ErrConflict.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Message returns the part of err after the kind prefix, for client-facing output.
func Message(err error) string {
	var kinds = []error{ErrNotFound, ErrRuleViolation, ErrConflict}
	msg := err.Error()
	for _, k := range kinds {
		prefix := k.Error() + ": "
		if errors.Is(err, k) && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return msg
}
