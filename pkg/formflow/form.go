package formflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/formflow-go/formflow/pkg/formflow/observability"
)

// Form is an event-driven state container for one form instance. It
// composes a Hub, a FieldStore, and a Coordinator, and wires the event
// vocabulary to state mutations: consumers publish request events and
// observe the resulting field changes and validation outcomes.
//
// The zero value is not usable; create forms with New.
type Form struct {
	id      string
	debug   bool
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	onError func(error)

	hub     *Hub
	store   *FieldStore
	coord   *Coordinator
	initial Values
}

// New creates a form with one field per key of initial. A nil or empty
// initial map yields a degenerate form with no fields, which is legal.
//
// The initial map is cloned; later mutations of the caller's map do not
// affect the form. Plugins run in order after the core event bindings
// are in place; the first plugin error aborts construction.
func New(initial Values, opts ...Option) (*Form, error) {
	cfg := defaultFormConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := cfg.id
	if id == "" {
		id = uuid.New().String()
	}
	logger := cfg.logger
	if logger != nil {
		logger = observability.EnrichLogger(logger, id)
	}
	metrics := observability.MetricsRecorder(observability.NoopMetrics{})
	if cfg.metrics {
		metrics = observability.NewMetricsRecorder()
	}
	spans := observability.SpanManager(observability.NoopSpanManager{})
	if cfg.tracing {
		spans = observability.NewSpanManager()
	}

	f := &Form{
		id:      id,
		debug:   cfg.debug,
		logger:  logger,
		metrics: metrics,
		initial: initial.Clone(),
	}

	f.onError = cfg.errorHandler
	if f.onError == nil {
		f.onError = func(err error) {
			observability.LogBackgroundError(logger, err)
		}
	}

	hubCfg := cfg.hub
	if hubCfg.OnError == nil {
		hubCfg.OnError = func(evt Event, err error) {
			f.onError(deliveryError(evt, err))
		}
	}
	f.hub = NewHub(hubCfg)
	f.store = NewFieldStore(initial)

	f.coord = NewCoordinator(f.hub, f.store)
	f.coord.formID = id
	f.coord.logger = logger
	f.coord.metrics = metrics
	f.coord.spans = spans
	f.coord.onError = f.onError

	f.bindCoreHandlers()
	observability.LogFormCreated(logger, len(f.store.Keys()))

	for i, p := range cfg.plugins {
		if p == nil {
			panic("formflow: plugin cannot be nil")
		}
		if err := p(f); err != nil {
			return nil, &PluginError{Index: i, Err: err}
		}
	}
	return f, nil
}

// bindCoreHandlers registers the request-event handlers that turn the
// vocabulary into state mutations. They are registered first, so they
// run before any plugin or consumer handler for the same event.
func (f *Form) bindCoreHandlers() {
	f.bind(EventChange, func(ctx context.Context, evt Event) error {
		c := evt.(ChangeEvent)
		f.store.SetValue(c.Key, c.Value)
		if f.debug {
			observability.LogFieldChanged(f.logger, c.Key)
		}
		f.metrics.RecordFieldChange(ctx, c.Key)
		return nil
	})
	f.bind(EventChangeMany, func(ctx context.Context, evt Event) error {
		c := evt.(ChangeManyEvent)
		f.store.SetValues(c.Values)
		for _, key := range sortedKeys(c.Values) {
			if f.debug {
				observability.LogFieldChanged(f.logger, key)
			}
			f.metrics.RecordFieldChange(ctx, key)
		}
		return nil
	})
	f.bind(EventTouch, func(ctx context.Context, evt Event) error {
		f.store.Touch(evt.(TouchEvent).Key)
		return nil
	})
	f.bind(EventTouchMany, func(ctx context.Context, evt Event) error {
		f.store.TouchMany(evt.(TouchManyEvent).Keys)
		return nil
	})
	f.bind(EventReset, func(ctx context.Context, evt Event) error {
		f.store.Reset(evt.(ResetEvent).Values)
		return nil
	})
	f.bind(EventErrors, func(ctx context.Context, evt Event) error {
		f.store.SetErrors(evt.(ErrorsEvent).Errors)
		return nil
	})
	f.bind(EventValidate, func(ctx context.Context, evt Event) error {
		return f.coord.Validate(ctx)
	})
	// Validation outcomes flow back into the store, so field subscribers
	// see errors appear and clear without extra wiring.
	f.bind(EventValidated, func(ctx context.Context, evt Event) error {
		f.store.SetErrors(evt.(ValidatedEvent).Errors)
		return nil
	})
}

// bind registers a core handler. Queues are empty during construction,
// so registration cannot fail.
func (f *Form) bind(t EventType, fn Handler) {
	_, _ = f.hub.subscribe(t, fn, false)
}

// ID returns the form identifier.
func (f *Form) ID() string {
	return f.id
}

// Keys returns the field keys in sorted order.
func (f *Form) Keys() []string {
	return f.store.Keys()
}

// Get returns one field's state.
func (f *Form) Get(key string) (Field, bool) {
	return f.store.Get(key)
}

// Value returns one field's current value.
func (f *Form) Value(key string) (any, bool) {
	return f.store.Value(key)
}

// Values returns a snapshot of all current values.
func (f *Form) Values() Values {
	return f.store.Values()
}

// Slice returns the state of the named fields. Unknown keys are omitted.
func (f *Form) Slice(keys ...string) map[string]Field {
	return f.store.Slice(keys...)
}

// Publish delivers an event through the form's hub. See Hub.Publish for
// delivery semantics.
func (f *Form) Publish(ctx context.Context, evt Event) error {
	if f.debug && evt != nil {
		observability.LogEventPublished(f.logger, string(evt.Type()))
	}
	if evt != nil {
		f.metrics.RecordEvent(ctx, string(evt.Type()))
	}
	return f.hub.Publish(ctx, evt)
}

// PublishDeferred parks an event for delivery after the current work
// completes. See Hub.PublishDeferred for delivery semantics; errors go
// to the configured error handler.
func (f *Form) PublishDeferred(ctx context.Context, evt Event) {
	if f.debug && evt != nil {
		observability.LogEventDeferred(f.logger, string(evt.Type()))
	}
	f.hub.PublishDeferred(ctx, evt)
}

// Subscribe registers a handler for one event type. See Hub.Subscribe.
func (f *Form) Subscribe(t EventType, fn Handler) (Unsubscribe, error) {
	return f.hub.Subscribe(t, fn)
}

// SubscribeOnce registers a handler for a single delivery. See
// Hub.SubscribeOnce.
func (f *Form) SubscribeOnce(t EventType, fn Handler) (Unsubscribe, error) {
	return f.hub.SubscribeOnce(t, fn)
}

// SubscribeField registers a callback for one field's changes.
func (f *Form) SubscribeField(key string, fn FieldCallback) Unsubscribe {
	return f.store.SubscribeField(key, fn)
}

// RegisterValidator adds a pure validator. See
// Coordinator.RegisterValidator.
func (f *Form) RegisterValidator(v Validator, opts ...ValidatorOption) {
	f.coord.RegisterValidator(v, opts...)
}

// RegisterErrorAwareValidator adds an error-aware validator. See
// Coordinator.RegisterErrorAwareValidator.
func (f *Form) RegisterErrorAwareValidator(v ErrorAwareValidator, opts ...ValidatorOption) {
	f.coord.RegisterErrorAwareValidator(v, opts...)
}

// IsValidating reports whether any validation run is in flight.
func (f *Form) IsValidating() bool {
	return f.coord.IsValidating()
}

// HasErrors reports whether any field currently carries an error.
func (f *Form) HasErrors() bool {
	return f.store.HasErrors()
}

// Validate publishes a ValidateEvent, starting a validation run against
// the current values. Equivalent to Publish(ctx, ValidateEvent{}).
func (f *Form) Validate(ctx context.Context) error {
	return f.Publish(ctx, ValidateEvent{})
}

// deliveryError wraps a deferred delivery failure with event context.
func deliveryError(evt Event, err error) error {
	if evt == nil {
		return err
	}
	return fmt.Errorf("deferred %s delivery: %w", evt.Type(), err)
}
