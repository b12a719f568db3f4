package formflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for event publication.
var (
	// ErrNilEvent indicates Publish was called with a nil event.
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrUnknownEventType indicates an event outside the closed vocabulary.
	ErrUnknownEventType = errors.New("unknown event type")
)

// ValidatorError wraps a fatal error returned by a validator.
// Fatal errors are distinct from validation findings: a validator that
// cannot run (bad input, lost connection) returns an error, while one
// that runs and finds problems returns an Errors map.
type ValidatorError struct {
	// Index is the validator's registration position, counting both
	// pure and error-aware registrations.
	Index int
	// RunID identifies the validation run that failed.
	RunID string
	// Err is the underlying error from the validator.
	Err error
}

// Error implements the error interface.
func (e *ValidatorError) Error() string {
	return fmt.Sprintf("validator %d (run %s): %v", e.Index, e.RunID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ValidatorError) Unwrap() error {
	return e.Err
}

// PluginError wraps an error returned by a plugin during form construction.
type PluginError struct {
	// Index is the plugin's position in the configured plugin list.
	Index int
	// Err is the underlying error from the plugin.
	Err error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *PluginError) Unwrap() error {
	return e.Err
}
