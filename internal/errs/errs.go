// Package errs defines the error types shared by the data access packages.
//
// Precondition failures (empty procedure name, missing callback, empty column
// name) are reported as *ArgumentError. Misuse of the connector state machine
// and reads of NULL through non-nullable accessors are reported as
// *StateError. Driver errors are never translated and pass through unchanged.
package errs

import "fmt"

// ArgumentError reports an invalid argument passed to an operation.
type ArgumentError struct {
	// Name is the offending argument (e.g. "name", "column", "reader").
	Name string

	// Message is the human-readable reason.
	Message string
}

func (e *ArgumentError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Name, e.Message)
}

// Is matches any *ArgumentError, so callers can write
// errors.Is(err, &errs.ArgumentError{}).
func (e *ArgumentError) Is(target error) bool {
	_, ok := target.(*ArgumentError)
	return ok
}

// StateError reports an operation that is not valid in the current state.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

// Is matches any *StateError.
func (e *StateError) Is(target error) bool {
	_, ok := target.(*StateError)
	return ok
}

// Argument builds an *ArgumentError.
func Argument(name, message string) *ArgumentError {
	return &ArgumentError{Name: name, Message: message}
}

// State builds a *StateError with a formatted message.
func State(format string, args ...any) *StateError {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}
