package formflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow-go/formflow/pkg/formflow/snapshot"
)

// TestAcceptance_SignupFlow drives a complete signup form through its
// lifecycle: type, blur, validate with findings, fix, revalidate clean.
func TestAcceptance_SignupFlow(t *testing.T) {
	f := newTestForm(t, Values{
		"email":    "",
		"password": "",
		"confirm":  "",
	})
	ctx := context.Background()

	// Sync: presence and shape checks.
	f.RegisterValidator(func(_ context.Context, values Values) (Errors, error) {
		errs := Errors{}
		for _, key := range []string{"email", "password", "confirm"} {
			if values[key] == "" {
				errs[key] = "is required"
			}
		}
		if pw, _ := values["password"].(string); pw != "" && len(pw) < 8 {
			errs["password"] = "must be at least 8 characters"
		}
		return errs, nil
	})

	// Error-aware: only complain about the confirmation once the
	// password itself is acceptable.
	f.RegisterErrorAwareValidator(func(_ context.Context, values Values, prior Errors) (Errors, error) {
		if _, bad := prior["password"]; bad {
			return nil, nil
		}
		if values["confirm"] != values["password"] {
			return Errors{"confirm": "does not match password"}, nil
		}
		return nil, nil
	})

	// Async: registry lookup.
	taken := map[string]bool{"admin@example.com": true}
	f.RegisterValidator(func(_ context.Context, values Values) (Errors, error) {
		email, _ := values["email"].(string)
		if taken[strings.ToLower(email)] {
			return Errors{"email": "is already registered"}, nil
		}
		return nil, nil
	}, WithAsync())

	terminal := captureTerminal(t, f.hub)

	b := NewBinder(f)
	defer b.Close()

	// First attempt: taken address, short password, blank confirmation.
	require.NoError(t, b.Bind("email").OnChange(ctx, "ADMIN@example.com"))
	require.NoError(t, b.Bind("password").OnChange(ctx, "hunter2"))
	require.NoError(t, b.Bind("email").OnBlur(ctx))
	require.NoError(t, f.Validate(ctx))

	evt := recv(t, terminal)
	assert.Equal(t, Errors{
		"email":    "is already registered",
		"password": "must be at least 8 characters",
		"confirm":  "is required",
	}, evt.Errors, "merged findings should span sync, error-aware, and async validators")

	email, _ := f.Get("email")
	assert.Equal(t, "is already registered", email.Error, "findings should land on the fields")
	assert.True(t, email.Touched)
	assert.True(t, f.HasErrors())

	// The confirm mismatch was suppressed while the password itself
	// was invalid; it surfaces once the password is fixed.
	require.NoError(t, b.Bind("password").OnChange(ctx, "correct horse battery"))
	require.NoError(t, f.Validate(ctx))

	evt = recv(t, terminal)
	assert.Equal(t, "does not match password", evt.Errors["confirm"])
	_, hasPassword := evt.Errors["password"]
	assert.False(t, hasPassword, "fixed password should be clean")

	// Fix everything: the run comes back clean and clears the fields.
	require.NoError(t, b.Bind("email").OnChange(ctx, "new@example.com"))
	require.NoError(t, b.Bind("confirm").OnChange(ctx, "correct horse battery"))
	require.NoError(t, f.Validate(ctx))

	evt = recv(t, terminal)
	assert.Nil(t, evt.Errors, "clean run should carry nil errors")
	assert.False(t, f.HasErrors(), "clean run should clear earlier findings")
}

// TestAcceptance_DeferredValidateThenListen exercises the
// defer-then-listen pattern: a component parks a validate request
// before the consumer exists, and the consumer's subscription flushes
// it.
func TestAcceptance_DeferredValidateThenListen(t *testing.T) {
	f := newTestForm(t, Values{"name": "ada"},
		WithHubConfig(HubConfig{FlushDelay: time.Second}))
	f.RegisterValidator(func(_ context.Context, values Values) (Errors, error) {
		if values["name"] == "" {
			return Errors{"name": "is required"}, nil
		}
		return nil, nil
	})

	f.PublishDeferred(context.Background(), ValidateEvent{})

	got := make(chan ValidatedEvent, 1)
	_, err := f.SubscribeOnce(EventValidated, func(_ context.Context, evt Event) error {
		got <- evt.(ValidatedEvent)
		return nil
	})
	require.NoError(t, err, "subscribing should flush the parked request")

	evt := recv(t, got)
	assert.Nil(t, evt.Errors)
	assert.Equal(t, "ada", evt.Values["name"])
}

// TestAcceptance_StartEventsHeldForLateConsumer verifies that
// validation start announcements are held until something subscribes,
// then replayed in order.
func TestAcceptance_StartEventsHeldForLateConsumer(t *testing.T) {
	f := newTestForm(t, Values{"a": 1})
	ctx := context.Background()

	terminal := captureTerminal(t, f.hub)
	require.NoError(t, f.Validate(ctx))
	first := recv(t, terminal)
	require.NoError(t, f.Validate(ctx))
	second := recv(t, terminal)

	var starts []string
	_, err := f.Subscribe(EventValidationStart, func(_ context.Context, evt Event) error {
		starts = append(starts, evt.(ValidationStartEvent).RunID)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, []string{first.RunID, second.RunID}, starts,
		"held announcements should replay in publish order")
}

// TestAcceptance_AutosaveAndRestore round-trips form state through a
// snapshot store across two form instances sharing an ID.
func TestAcceptance_AutosaveAndRestore(t *testing.T) {
	store := snapshot.NewMemoryStore()
	ctx := context.Background()

	f1, err := New(Values{"email": "", "plan": ""},
		WithLogger(nil),
		WithID("signup"),
		WithPlugins(AutosavePlugin(store)),
	)
	require.NoError(t, err)

	require.NoError(t, f1.Publish(ctx, ChangeEvent{Key: "email", Value: "ada@example.com"}))
	require.NoError(t, f1.Publish(ctx, ChangeEvent{Key: "plan", Value: "pro"}))
	require.Equal(t, 1, store.Len(), "autosave should overwrite a single snapshot per form")

	// A later session with the same ID picks the state back up.
	f2, err := New(Values{"email": "", "plan": ""},
		WithLogger(nil),
		WithID("signup"),
		WithPlugins(RestorePlugin(store)),
	)
	require.NoError(t, err)

	assert.Equal(t, Values{"email": "ada@example.com", "plan": "pro"}, f2.Values())

	// Restore is a reset: fields are not marked touched.
	email, _ := f2.Get("email")
	assert.False(t, email.Touched)
}

// TestAcceptance_RenderLoop simulates a UI update loop: a binder
// coalesces bursts of events into single refreshes while the form
// absorbs changes, validation, and a reset.
func TestAcceptance_RenderLoop(t *testing.T) {
	f := newTestForm(t, Values{"q": "", "page": 1})
	f.RegisterValidator(func(_ context.Context, values Values) (Errors, error) {
		if values["q"] == "" {
			return Errors{"q": "is required"}, nil
		}
		return nil, nil
	})

	b := NewBinder(f)
	defer b.Close()
	ctx := context.Background()

	refreshes := 0
	redraw := func() {
		select {
		case <-b.C():
			refreshes++
		default:
		}
	}

	// A burst of typing coalesces into one pending refresh.
	for _, q := range []string{"g", "go", "gop", "goph"} {
		require.NoError(t, b.Bind("q").OnChange(ctx, q))
	}
	redraw()
	require.Equal(t, 1, refreshes)
	assert.Equal(t, "goph", b.Bind("q").Value)

	require.NoError(t, f.Validate(ctx))
	redraw()
	require.Equal(t, 2, refreshes)
	assert.Empty(t, b.Bind("q").Error, "non-empty query should validate clean")

	require.NoError(t, f.Publish(ctx, ResetEvent{}))
	redraw()
	require.Equal(t, 3, refreshes)
	assert.Equal(t, "", b.Bind("q").Value, "reset should restore initial values")
	assert.False(t, b.AnyTouched())
}
