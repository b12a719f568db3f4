package formflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew verifies form construction.
func TestNew(t *testing.T) {
	t.Run("fields come from the initial map", func(t *testing.T) {
		f := newTestForm(t, Values{"email": "", "age": 30})

		assert.Equal(t, []string{"age", "email"}, f.Keys())
		fd, ok := f.Get("age")
		require.True(t, ok)
		assert.Equal(t, Field{Key: "age", Value: 30}, fd)
	})

	t.Run("generates an ID when none is given", func(t *testing.T) {
		f := newTestForm(t, nil)
		assert.NotEmpty(t, f.ID())

		other := newTestForm(t, nil)
		assert.NotEqual(t, f.ID(), other.ID())
	})

	t.Run("WithID sets the identifier", func(t *testing.T) {
		f := newTestForm(t, nil, WithID("signup"))
		assert.Equal(t, "signup", f.ID())
	})

	t.Run("initial map is cloned", func(t *testing.T) {
		initial := Values{"name": "alice"}
		f := newTestForm(t, initial)

		initial["name"] = "mallory"

		v, _ := f.Value("name")
		assert.Equal(t, "alice", v)
	})

	t.Run("no fields is legal", func(t *testing.T) {
		f := newTestForm(t, nil)
		assert.Empty(t, f.Keys())
		assert.Empty(t, f.Values())
	})
}

// TestForm_ChangeEvent tests that change events mutate the store before
// consumer handlers observe them.
func TestForm_ChangeEvent(t *testing.T) {
	f := newTestForm(t, Values{"name": ""})
	ctx := context.Background()

	var seenDuringEvent any
	_, err := f.Subscribe(EventChange, func(context.Context, Event) error {
		seenDuringEvent, _ = f.Value("name")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, f.Publish(ctx, ChangeEvent{Key: "name", Value: "alice"}))

	assert.Equal(t, "alice", seenDuringEvent, "state mutates before consumer handlers run")
	fd, _ := f.Get("name")
	assert.Equal(t, Field{Key: "name", Value: "alice", Touched: true}, fd)
}

// TestForm_ChangeManyEvent tests batched changes.
func TestForm_ChangeManyEvent(t *testing.T) {
	f := newTestForm(t, Values{"a": 0, "b": 0})

	require.NoError(t, f.Publish(context.Background(), ChangeManyEvent{
		Values: Values{"a": 1, "b": 2},
	}))

	assert.Equal(t, Values{"a": 1, "b": 2}, f.Values())
}

// TestForm_TouchEvents tests touch request events.
func TestForm_TouchEvents(t *testing.T) {
	f := newTestForm(t, Values{"a": 1, "b": 2, "c": 3})
	ctx := context.Background()

	require.NoError(t, f.Publish(ctx, TouchEvent{Key: "a"}))
	require.NoError(t, f.Publish(ctx, TouchManyEvent{Keys: []string{"b", "c"}}))

	for _, key := range f.Keys() {
		fd, _ := f.Get(key)
		assert.True(t, fd.Touched, key)
	}
}

// TestForm_ResetEvent tests snapshot restoration through the hub.
func TestForm_ResetEvent(t *testing.T) {
	f := newTestForm(t, Values{"name": "start"})
	ctx := context.Background()

	require.NoError(t, f.Publish(ctx, ChangeEvent{Key: "name", Value: "edited"}))

	t.Run("nil snapshot restores initial values", func(t *testing.T) {
		require.NoError(t, f.Publish(ctx, ResetEvent{}))
		fd, _ := f.Get("name")
		assert.Equal(t, Field{Key: "name", Value: "start"}, fd)
	})

	t.Run("explicit snapshot wins", func(t *testing.T) {
		require.NoError(t, f.Publish(ctx, ResetEvent{Values: Values{"name": "snap"}}))
		v, _ := f.Value("name")
		assert.Equal(t, "snap", v)
	})
}

// TestForm_ErrorsEvent tests whole-form error replacement through the hub.
func TestForm_ErrorsEvent(t *testing.T) {
	f := newTestForm(t, Values{"a": 1, "b": 2})
	ctx := context.Background()

	require.NoError(t, f.Publish(ctx, ErrorsEvent{Errors: Errors{"a": "bad a", "b": "bad b"}}))
	require.NoError(t, f.Publish(ctx, ErrorsEvent{Errors: Errors{"b": "still bad"}}))

	fa, _ := f.Get("a")
	fb, _ := f.Get("b")
	assert.Empty(t, fa.Error)
	assert.Equal(t, "still bad", fb.Error)
}

// TestForm_Validate tests the validation round trip: findings land on
// the fields, and a clean follow-up run clears them.
func TestForm_Validate(t *testing.T) {
	f := newTestForm(t, Values{"email": ""})
	ctx := context.Background()

	f.RegisterValidator(func(_ context.Context, values Values) (Errors, error) {
		if values["email"] == "" {
			return Errors{"email": "required"}, nil
		}
		return nil, nil
	})

	require.NoError(t, f.Validate(ctx))
	fd, _ := f.Get("email")
	assert.Equal(t, "required", fd.Error)

	require.NoError(t, f.Publish(ctx, ChangeEvent{Key: "email", Value: "a@b.c"}))
	require.NoError(t, f.Validate(ctx))
	fd, _ = f.Get("email")
	assert.Empty(t, fd.Error)
}

// TestForm_Validate_FatalError tests that a synchronous validator
// failure propagates to the Validate caller.
func TestForm_Validate_FatalError(t *testing.T) {
	f := newTestForm(t, Values{"a": 1})
	bang := errors.New("lookup unavailable")

	f.RegisterValidator(func(context.Context, Values) (Errors, error) {
		return nil, bang
	})

	err := f.Validate(context.Background())
	var verr *ValidatorError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, bang)
	assert.False(t, f.IsValidating())
}

// TestForm_SubscribeField tests per-field callbacks on the form surface.
func TestForm_SubscribeField(t *testing.T) {
	f := newTestForm(t, Values{"name": ""})
	rec := &fieldRecorder{}

	unsub := f.SubscribeField("name", rec.callback())
	require.NoError(t, f.Publish(context.Background(), ChangeEvent{Key: "name", Value: "a"}))
	assert.Equal(t, 1, rec.count())

	unsub()
	require.NoError(t, f.Publish(context.Background(), ChangeEvent{Key: "name", Value: "b"}))
	assert.Equal(t, 1, rec.count())
}

// TestOnEvent tests the typed subscription helper.
func TestOnEvent(t *testing.T) {
	f := newTestForm(t, Values{"name": ""})

	var got ChangeEvent
	unsub, err := OnEvent(f, func(_ context.Context, evt ChangeEvent) error {
		got = evt
		return nil
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, f.Publish(context.Background(), ChangeEvent{Key: "name", Value: "alice"}))
	assert.Equal(t, ChangeEvent{Key: "name", Value: "alice"}, got)
}

// TestForm_Plugins tests plugin execution during construction.
func TestForm_Plugins(t *testing.T) {
	t.Run("run in order with fields ready", func(t *testing.T) {
		var order []string
		mk := func(name string) Plugin {
			return func(f *Form) error {
				order = append(order, name)
				assert.Equal(t, []string{"a"}, f.Keys(), "plugins see the constructed fields")
				return nil
			}
		}

		newTestForm(t, Values{"a": 1}, WithPlugins(mk("first"), mk("second")))
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("error aborts construction", func(t *testing.T) {
		bang := errors.New("bad wiring")
		_, err := New(Values{"a": 1},
			WithLogger(nil),
			WithPlugins(
				func(*Form) error { return nil },
				func(*Form) error { return bang },
			),
		)
		var perr *PluginError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 1, perr.Index)
		assert.ErrorIs(t, err, bang)
	})

	t.Run("nil plugin panics", func(t *testing.T) {
		assert.PanicsWithValue(t, "formflow: plugin cannot be nil", func() {
			_, _ = New(nil, WithLogger(nil), WithPlugins(nil))
		})
	})

	t.Run("plugin handlers run after core mutation", func(t *testing.T) {
		var seen any
		f := newTestForm(t, Values{"name": ""}, WithPlugins(func(f *Form) error {
			_, err := f.Subscribe(EventChange, func(context.Context, Event) error {
				seen, _ = f.Value("name")
				return nil
			})
			return err
		}))

		require.NoError(t, f.Publish(context.Background(), ChangeEvent{Key: "name", Value: "alice"}))
		assert.Equal(t, "alice", seen)
	})
}

// TestForm_ErrorHandler tests the sink for deferred delivery failures.
func TestForm_ErrorHandler(t *testing.T) {
	caught := make(chan error, 1)
	f := newTestForm(t, Values{"a": 1},
		WithErrorHandler(func(err error) { caught <- err }),
	)

	// An event outside the vocabulary fails at flush time; the failure
	// has no publisher to return to, so it lands on the handler.
	f.PublishDeferred(context.Background(), mysteryEvent{})

	err := recv(t, caught)
	assert.ErrorIs(t, err, ErrUnknownEventType)
	assert.Contains(t, err.Error(), "deferred mystery delivery")
}

// TestForm_PublishDeferred_Observed tests the defer-then-listen pattern
// on the form surface.
func TestForm_PublishDeferred_Observed(t *testing.T) {
	// Long FlushDelay pins delivery to the subscribe-triggered flush.
	f := newTestForm(t, Values{"name": ""},
		WithHubConfig(HubConfig{FlushDelay: time.Second}),
	)
	got := make(chan Event, 1)

	f.PublishDeferred(context.Background(), ChangeEvent{Key: "name", Value: "late"})

	// Subscribing flushes the parked event into the new handler.
	_, err := f.SubscribeOnce(EventChange, func(_ context.Context, evt Event) error {
		got <- evt
		return nil
	})
	require.NoError(t, err)

	evt := recv(t, got)
	assert.Equal(t, ChangeEvent{Key: "name", Value: "late"}, evt)
	v, _ := f.Value("name")
	assert.Equal(t, "late", v, "the core handler applied the change as well")
}
