package formflow

import "context"

// EventType identifies a member of the form event vocabulary.
type EventType string

// The event vocabulary is closed: these are the only types a form
// publishes or accepts. Publish rejects events outside this set.
const (
	// EventChange requests a single field value update.
	EventChange EventType = "change"

	// EventChangeMany requests value updates for several fields.
	EventChangeMany EventType = "change_many"

	// EventTouch marks a single field as touched.
	EventTouch EventType = "touch"

	// EventTouchMany marks several fields as touched.
	EventTouchMany EventType = "touch_many"

	// EventReset restores fields to a snapshot (or the initial values).
	EventReset EventType = "reset"

	// EventErrors replaces the error state of every field.
	EventErrors EventType = "errors"

	// EventValidate starts a validation run.
	EventValidate EventType = "validate"

	// EventValidationStart announces that a validation run has begun.
	EventValidationStart EventType = "validation_start"

	// EventValidated carries the outcome of a completed validation run.
	EventValidated EventType = "validated"
)

// Event is the closed union of form events. The concrete types below are
// the only implementations the hub accepts.
type Event interface {
	Type() EventType
}

// ChangeEvent requests a value update for one field.
type ChangeEvent struct {
	Key   string
	Value any
}

// Type implements Event.
func (ChangeEvent) Type() EventType { return EventChange }

// ChangeManyEvent requests value updates for several fields at once.
// Each field is updated and notified independently.
type ChangeManyEvent struct {
	Values Values
}

// Type implements Event.
func (ChangeManyEvent) Type() EventType { return EventChangeMany }

// TouchEvent marks one field as touched.
type TouchEvent struct {
	Key string
}

// Type implements Event.
func (TouchEvent) Type() EventType { return EventTouch }

// TouchManyEvent marks several fields as touched.
type TouchManyEvent struct {
	Keys []string
}

// Type implements Event.
func (TouchManyEvent) Type() EventType { return EventTouchMany }

// ResetEvent restores every field to the given snapshot. A nil Values
// restores the construction-time initial values; keys absent from a
// non-nil snapshot also fall back to their initial value.
type ResetEvent struct {
	Values Values
}

// Type implements Event.
func (ResetEvent) Type() EventType { return EventReset }

// ErrorsEvent replaces the error state of the whole form. Fields absent
// from Errors have their error cleared.
type ErrorsEvent struct {
	Errors Errors
}

// Type implements Event.
func (ErrorsEvent) Type() EventType { return EventErrors }

// ValidateEvent starts a validation run against the current values.
type ValidateEvent struct{}

// Type implements Event.
func (ValidateEvent) Type() EventType { return EventValidate }

// ValidationStartEvent announces that a validation run has begun.
// RunID correlates it with the matching ValidatedEvent.
type ValidationStartEvent struct {
	RunID string
}

// Type implements Event.
func (ValidationStartEvent) Type() EventType { return EventValidationStart }

// ValidatedEvent is the terminal signal of a validation run. Values is
// the snapshot the run validated; Errors is the merged result, nil when
// every validator came back clean.
type ValidatedEvent struct {
	RunID  string
	Values Values
	Errors Errors
}

// Type implements Event.
func (ValidatedEvent) Type() EventType { return EventValidated }

// allEventTypes lists the vocabulary in a stable order.
var allEventTypes = []EventType{
	EventChange,
	EventChangeMany,
	EventTouch,
	EventTouchMany,
	EventReset,
	EventErrors,
	EventValidate,
	EventValidationStart,
	EventValidated,
}

// OnEvent subscribes fn to the event type matching its payload type E,
// sparing the caller the type assertion.
//
// Example:
//
//	unsub, err := formflow.OnEvent(form, func(ctx context.Context, evt formflow.ValidatedEvent) error {
//	    fmt.Println(evt.Errors)
//	    return nil
//	})
func OnEvent[E Event](f *Form, fn func(ctx context.Context, evt E) error) (Unsubscribe, error) {
	var zero E
	return f.Subscribe(zero.Type(), func(ctx context.Context, evt Event) error {
		return fn(ctx, evt.(E))
	})
}
