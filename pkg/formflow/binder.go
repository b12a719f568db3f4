package formflow

import (
	"context"
	"sync"
)

// Binder bridges a form to a render or update loop. It subscribes to a
// set of fields plus the validation lifecycle and coalesces every
// notification into a single pending refresh signal: however many
// mutations land between two reads of C, the consumer wakes at most
// once and re-reads current state.
//
// Close releases every subscription; a closed binder never signals
// again.
type Binder struct {
	form  *Form
	keys  []string
	dirty chan struct{} // capacity 1: pending-refresh flag

	mu     sync.Mutex
	unsubs []Unsubscribe
	closed bool
}

// Input is a per-field binding for input widgets: the field's current
// state plus callbacks that publish the matching request events.
type Input struct {
	Key     string
	Value   any
	Error   string
	Touched bool

	// OnChange publishes a ChangeEvent for this field.
	OnChange func(ctx context.Context, value any) error

	// OnBlur publishes a TouchEvent for this field.
	OnBlur func(ctx context.Context) error
}

// NewBinder creates a binder observing the given field keys, or every
// field when none are named.
func NewBinder(form *Form, keys ...string) *Binder {
	if len(keys) == 0 {
		keys = form.Keys()
	}
	b := &Binder{
		form:  form,
		keys:  keys,
		dirty: make(chan struct{}, 1),
	}

	for _, key := range keys {
		b.unsubs = append(b.unsubs, form.SubscribeField(key, func(Field) {
			b.mark()
		}))
	}
	// Validation transitions share the same refresh signal.
	for _, t := range []EventType{EventValidationStart, EventValidated} {
		unsub, _ := form.Subscribe(t, func(context.Context, Event) error {
			b.mark()
			return nil
		})
		b.unsubs = append(b.unsubs, unsub)
	}
	return b
}

// C returns the refresh channel. A receive means state changed since
// the last read; re-read whatever is needed via Fields, Bind,
// AnyTouched, or IsValidating.
func (b *Binder) C() <-chan struct{} {
	return b.dirty
}

// Fields returns the current state of the bound fields.
func (b *Binder) Fields() map[string]Field {
	return b.form.Slice(b.keys...)
}

// Bind returns the input binding for one field.
func (b *Binder) Bind(key string) Input {
	f, _ := b.form.Get(key)
	return Input{
		Key:     key,
		Value:   f.Value,
		Error:   f.Error,
		Touched: f.Touched,
		OnChange: func(ctx context.Context, value any) error {
			return b.form.Publish(ctx, ChangeEvent{Key: key, Value: value})
		},
		OnBlur: func(ctx context.Context) error {
			return b.form.Publish(ctx, TouchEvent{Key: key})
		},
	}
}

// AnyTouched reports whether any field of the form has been touched.
func (b *Binder) AnyTouched() bool {
	for _, key := range b.form.Keys() {
		if f, ok := b.form.Get(key); ok && f.Touched {
			return true
		}
	}
	return false
}

// IsValidating reports whether a validation run is in flight.
func (b *Binder) IsValidating() bool {
	return b.form.IsValidating()
}

// Close releases every subscription. Closing twice is a no-op.
func (b *Binder) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// mark raises the pending refresh flag without blocking.
func (b *Binder) mark() {
	select {
	case b.dirty <- struct{}{}:
	default:
	}
}
