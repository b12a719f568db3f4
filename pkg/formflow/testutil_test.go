package formflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Shared helpers across hub, field, coordinator, form, and binder tests.

// newTestForm creates a silent form, failing the test on error.
func newTestForm(t *testing.T, initial Values, opts ...Option) *Form {
	t.Helper()
	f, err := New(initial, append([]Option{WithLogger(nil)}, opts...)...)
	require.NoError(t, err)
	return f
}

// eventRecorder collects delivered events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// handler returns a Handler that records every delivery.
func (r *eventRecorder) handler() Handler {
	return func(_ context.Context, evt Event) error {
		r.mu.Lock()
		r.events = append(r.events, evt)
		r.mu.Unlock()
		return nil
	}
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// fieldRecorder collects field callback invocations.
type fieldRecorder struct {
	mu     sync.Mutex
	fields []Field
}

// callback returns a FieldCallback that records every notification.
func (r *fieldRecorder) callback() FieldCallback {
	return func(f Field) {
		r.mu.Lock()
		r.fields = append(r.fields, f)
		r.mu.Unlock()
	}
}

func (r *fieldRecorder) all() []Field {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r *fieldRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fields)
}

// recv waits for one value, failing the test after a generous timeout.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	var zero T
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting on channel")
		return zero
	}
}

// expectNone asserts that no value arrives within a short window.
func expectNone[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected value on channel")
	case <-time.After(20 * time.Millisecond):
	}
}

// waitIdle polls until no validation run is in flight.
func waitIdle(t *testing.T, c *Coordinator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.IsValidating() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.False(t, c.IsValidating(), "validation still in flight")
}

// mysteryEvent is outside the closed vocabulary.
type mysteryEvent struct{}

func (mysteryEvent) Type() EventType { return "mystery" }
