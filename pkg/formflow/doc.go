/*
Package formflow provides an event-driven state container for forms.

# Overview

formflow holds a form's field state (value, error, and touched flag
per field) behind a small closed event vocabulary. Consumers publish
request events (change, touch, reset, errors, validate) and observe the
results through per-field callbacks and lifecycle events. Validation is
pluggable: register validator functions, synchronous or asynchronous,
and the coordinator snapshots the values, runs them, merges their
findings, and publishes a single terminal event per run.

Features:
  - Queue-until-subscribed event hub: events published before the first
    handler arrives are replayed, in order, when it subscribes
  - Deferred publication for "after the current work" delivery
  - Pure and error-aware validators with deterministic merge order
  - Coalescing binder for render loops (one refresh signal per burst)
  - Construction-time plugins: logging, autosave, restore
  - OpenTelemetry integration for observability

# Basic Usage

Create a form from initial values, watch a field, publish changes:

	form, err := formflow.New(formflow.Values{"name": "", "count": 0})
	if err != nil {
	    log.Fatal(err)
	}

	form.SubscribeField("name", func(f formflow.Field) {
	    fmt.Printf("name=%q touched=%v\n", f.Value, f.Touched)
	})

	ctx := context.Background()
	if err := form.Publish(ctx, formflow.ChangeEvent{Key: "name", Value: "Ada"}); err != nil {
	    log.Fatal(err)
	}

Setting a field to a structurally equal value is a no-op: no callback
fires. A successful change clears the field's error and marks it
touched.

# Validation

Validators inspect a values snapshot and report findings per field key.
Pure validators see only the values; error-aware validators also receive
the findings merged from the run's synchronous pure validators:

	form.RegisterValidator(func(ctx context.Context, v formflow.Values) (formflow.Errors, error) {
	    if v["name"] == "" {
	        return formflow.Errors{"name": "required"}, nil
	    }
	    return nil, nil
	})

	form.RegisterErrorAwareValidator(func(ctx context.Context, v formflow.Values, prior formflow.Errors) (formflow.Errors, error) {
	    if prior["name"] != "" {
	        return nil, nil // don't pile on
	    }
	    return checkNameAvailable(ctx, v["name"])
	})

	// Slow validators run on their own goroutine per run.
	form.RegisterValidator(checkQuota, formflow.WithAsync())

	err := form.Validate(ctx) // or Publish(ctx, formflow.ValidateEvent{})

Each run publishes ValidationStartEvent, then exactly one
ValidatedEvent carrying the snapshot and the merged findings (nil when
clean). Findings merge in registration order, later validators
overwriting earlier ones per key. The form applies the result to the
field store automatically, so field subscribers see errors appear and
clear. If a second run starts before the first concludes, the first
goes stale and only the latest publishes its terminal event.

# Deferred Events

PublishDeferred parks an event until the current work completes. This
lets a handler trigger validation while code registered afterwards can
still observe the outcome:

	form.PublishDeferred(ctx, formflow.ValidateEvent{})
	_, err := form.SubscribeOnce(formflow.EventValidated, func(ctx context.Context, evt formflow.Event) error {
	    fmt.Println(evt.(formflow.ValidatedEvent).Errors)
	    return nil
	})

The parked validate flushes after SubscribeOnce completes, so the
handler is in place when the run fires.

# Binding to a UI Loop

Binder coalesces notification bursts into one refresh signal:

	binder := formflow.NewBinder(form, "name", "email")
	defer binder.Close()

	for range binder.C() {
	    render(binder.Fields(), binder.IsValidating())
	}

Bind returns per-field input bindings with OnChange/OnBlur callbacks
that publish the matching events.

# Plugins and Snapshots

Plugins extend a form at construction time. The snapshot subpackage
persists values (memory or SQLite); AutosavePlugin and RestorePlugin
wire it in:

	store, err := snapshot.NewSQLiteStore("./forms.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	form, err := formflow.New(initial,
	    formflow.WithID("signup"),
	    formflow.WithPlugins(
	        formflow.RestorePlugin(store),
	        formflow.AutosavePlugin(store),
	    ))

# Declarative Definitions

The config subpackage loads form definitions from YAML or JSON and
compiles their constraints into a validator:

	def, err := config.FromFile("signup.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	form, err := config.NewForm(def)

# Observability

Enable logging, metrics, and tracing:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	form, err := formflow.New(initial,
	    formflow.WithLogger(logger),
	    formflow.WithDebug(true),
	    formflow.WithMetrics(true),
	    formflow.WithTracing(true))

Logs include structured fields: form_id, run_id, field, duration_ms.
OpenTelemetry metrics: formflow.event.published, formflow.field.changes,
formflow.validation.runs, formflow.validation.latency_ms, etc.
OpenTelemetry tracing: one formflow.validate span per run.

# Error Handling

Handler errors abort the remaining fan-out and propagate to the
publisher. Validator fatal errors (distinct from findings) abort the
run without a terminal event:

	err := form.Validate(ctx)
	var verr *formflow.ValidatorError
	if errors.As(err, &verr) {
	    log.Printf("validator %d failed: %v", verr.Index, verr.Err)
	}

Errors on paths with no caller, such as deferred deliveries and
asynchronous validator failures, go to the WithErrorHandler sink
(default: logged).

# Thread Safety

  - Form, Hub, FieldStore, and Coordinator are safe for concurrent use
  - Handlers and field callbacks run synchronously on the goroutine
    that triggered them, with internal locks released; reentrant
    publishes and mutations from handlers are supported
  - Deferred events and async validation conclusions are delivered on a
    later operation's goroutine or a background goroutine

# Subpackages

  - config: Declarative form definitions (YAML/JSON) and rule validators
  - observability: Logging, metrics, and tracing helpers
  - snapshot: Values snapshot storage (memory, SQLite)
*/
package formflow
