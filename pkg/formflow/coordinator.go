package formflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/formflow-go/formflow/pkg/formflow/observability"
)

// Coordinator orchestrates validation runs: it snapshots the store,
// drives the registered validators, merges their findings, and publishes
// the run lifecycle events on the hub.
type Coordinator struct {
	hub   *Hub
	store *FieldStore

	formID  string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	onError func(error) // sink for faults with no caller to return to

	mu      sync.Mutex
	entries []*validatorEntry
	active  int
	seq     uint64
	latest  uint64
}

// NewCoordinator creates a coordinator that publishes on hub and
// validates snapshots of store. Logging, metrics, and tracing stay
// disabled until wired by the owning form.
func NewCoordinator(hub *Hub, store *FieldStore) *Coordinator {
	return &Coordinator{
		hub:     hub,
		store:   store,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// RegisterValidator adds a pure validator. Registration order across
// both validator kinds fixes the merge order of findings: later
// registrations overwrite earlier ones per field key.
func (c *Coordinator) RegisterValidator(v Validator, opts ...ValidatorOption) {
	if v == nil {
		panic("formflow: validator cannot be nil")
	}
	cfg := applyValidatorOptions(opts)
	c.mu.Lock()
	c.entries = append(c.entries, &validatorEntry{index: len(c.entries), async: cfg.async, pure: v})
	c.mu.Unlock()
}

// RegisterErrorAwareValidator adds an error-aware validator. During a
// run it receives the findings merged from the run's synchronous pure
// validators.
func (c *Coordinator) RegisterErrorAwareValidator(v ErrorAwareValidator, opts ...ValidatorOption) {
	if v == nil {
		panic("formflow: validator cannot be nil")
	}
	cfg := applyValidatorOptions(opts)
	c.mu.Lock()
	c.entries = append(c.entries, &validatorEntry{index: len(c.entries), async: cfg.async, errAware: v})
	c.mu.Unlock()
}

func applyValidatorOptions(opts []ValidatorOption) validatorConfig {
	var cfg validatorConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ValidatorCount returns the number of registered validators.
// Useful for testing.
func (c *Coordinator) ValidatorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// IsValidating reports whether any validation run is in flight.
func (c *Coordinator) IsValidating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active > 0
}

// Validate performs one validation run and returns once its synchronous
// portion completes. A run with no asynchronous validators concludes
// before Validate returns; otherwise a background goroutine waits for
// every validator and publishes the terminal event.
//
// The run: publish ValidationStartEvent, snapshot values, run the pure
// validators (synchronous ones inline in order, asynchronous ones on
// their own goroutines), merge the synchronous pure findings, hand them
// to the error-aware validators, then merge everything in registration
// order and publish ValidatedEvent.
//
// If a newer run starts before this one concludes, this run goes stale
// and its terminal event is suppressed: only the latest run publishes
// ValidatedEvent.
func (c *Coordinator) Validate(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.latest = seq
	entries := make([]*validatorEntry, len(c.entries))
	copy(entries, c.entries)
	c.active++
	c.mu.Unlock()

	runID := uuid.New().String()
	done := observability.TimedOperation()
	ctx, span := c.spans.StartValidationSpan(ctx, c.formID, runID)
	observability.LogValidationStart(c.logger, runID, len(entries))

	if err := c.hub.Publish(ctx, ValidationStartEvent{RunID: runID}); err != nil {
		c.release()
		c.metrics.RecordValidationRun(ctx, false, false, done(), 0)
		c.spans.EndSpanWithError(span, err)
		return err
	}

	values := c.store.Values()

	results := make([]Errors, len(entries))
	fatal := make([]error, len(entries))
	var wg sync.WaitGroup
	spawned := 0

	// Pure validators. Asynchronous ones start in registration order,
	// interleaved with the synchronous executions.
	for _, e := range entries {
		if e.pure == nil {
			continue
		}
		if e.async {
			spawned++
			wg.Add(1)
			go func(e *validatorEntry) {
				defer wg.Done()
				results[e.index], fatal[e.index] = e.pure(ctx, values)
			}(e)
			continue
		}
		res, err := e.pure(ctx, values)
		if err != nil {
			return c.fail(ctx, runID, e.index, err, done, span)
		}
		results[e.index] = res
	}

	// The synchronous pure findings feed the error-aware phase.
	syncFindings := make(Errors)
	for _, e := range entries {
		if e.pure != nil && !e.async {
			mergeInto(syncFindings, results[e.index])
		}
	}

	// Error-aware validators, same interleaving.
	for _, e := range entries {
		if e.errAware == nil {
			continue
		}
		if e.async {
			spawned++
			wg.Add(1)
			go func(e *validatorEntry) {
				defer wg.Done()
				results[e.index], fatal[e.index] = e.errAware(ctx, values, syncFindings)
			}(e)
			continue
		}
		res, err := e.errAware(ctx, values, syncFindings)
		if err != nil {
			return c.fail(ctx, runID, e.index, err, done, span)
		}
		results[e.index] = res
	}

	if spawned == 0 {
		return c.conclude(ctx, seq, runID, values, mergeAll(entries, results), done, span)
	}

	go func() {
		wg.Wait()
		for _, e := range entries {
			if fatal[e.index] != nil {
				c.release()
				verr := &ValidatorError{Index: e.index, RunID: runID, Err: fatal[e.index]}
				observability.LogValidatorError(c.logger, runID, e.index, fatal[e.index])
				c.metrics.RecordValidationRun(ctx, false, false, done(), 0)
				c.spans.EndSpanWithError(span, verr)
				c.report(verr)
				return
			}
		}
		if err := c.conclude(ctx, seq, runID, values, mergeAll(entries, results), done, span); err != nil {
			c.report(err)
		}
	}()
	return nil
}

// conclude drops the running flag and publishes the terminal event,
// unless the run went stale in the meantime.
func (c *Coordinator) conclude(ctx context.Context, seq uint64, runID string, values Values, merged Errors, done func() float64, span trace.Span) error {
	c.mu.Lock()
	c.active--
	stale := seq != c.latest
	c.mu.Unlock()

	elapsed := done()
	if stale {
		observability.LogValidationStale(c.logger, runID)
		c.metrics.RecordValidationRun(ctx, true, true, elapsed, len(merged))
		c.spans.EndSpanWithError(span, nil)
		return nil
	}

	var errs Errors
	if len(merged) > 0 {
		errs = merged
	}
	err := c.hub.Publish(ctx, ValidatedEvent{RunID: runID, Values: values, Errors: errs})
	observability.LogValidationComplete(c.logger, runID, elapsed, len(errs))
	c.metrics.RecordValidationRun(ctx, err == nil, false, elapsed, len(errs))
	c.spans.EndSpanWithError(span, err)
	return err
}

// fail aborts a run after a synchronous validator returned a fatal
// error. No terminal event is published.
func (c *Coordinator) fail(ctx context.Context, runID string, index int, err error, done func() float64, span trace.Span) error {
	c.release()
	verr := &ValidatorError{Index: index, RunID: runID, Err: err}
	observability.LogValidatorError(c.logger, runID, index, err)
	c.metrics.RecordValidationRun(ctx, false, false, done(), 0)
	c.spans.EndSpanWithError(span, verr)
	return verr
}

// release drops the running flag for one run.
func (c *Coordinator) release() {
	c.mu.Lock()
	c.active--
	c.mu.Unlock()
}

// report routes an error that has no caller to return to.
func (c *Coordinator) report(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

// mergeInto copies findings into dst, overwriting per key.
func mergeInto(dst, src Errors) {
	for k, msg := range src {
		dst[k] = msg
	}
}

// mergeAll merges every result in registration order: later validators
// overwrite earlier ones for the same key.
func mergeAll(entries []*validatorEntry, results []Errors) Errors {
	merged := make(Errors)
	for _, e := range entries {
		mergeInto(merged, results[e.index])
	}
	return merged
}
