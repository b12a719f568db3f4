package formflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/formflow-go/formflow/pkg/formflow/observability"
	"github.com/formflow-go/formflow/pkg/formflow/snapshot"
)

// Plugin extends a form during construction. Plugins run in
// registration order after the core event bindings, so their handlers
// observe state the core has already mutated. A plugin error aborts
// construction.
//
// Plugins hold the *Form they received and may subscribe to events,
// register validators, and publish.
type Plugin func(f *Form) error

// LoggingPlugin subscribes to every event type and logs each delivery
// at debug level. A nil logger falls back to the form's own logger.
func LoggingPlugin(logger *slog.Logger) Plugin {
	return func(f *Form) error {
		log := logger
		if log == nil {
			log = f.logger
		}
		for _, t := range allEventTypes {
			if _, err := f.Subscribe(t, func(ctx context.Context, evt Event) error {
				if log != nil {
					log.Debug("form event",
						slog.String("event_type", string(evt.Type())),
					)
				}
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}
}

// AutosavePlugin persists a JSON snapshot of the form's values after
// every value mutation (change, change_many, reset). Save failures are
// non-fatal: they are logged and the triggering event still succeeds.
//
// Values round-trip through encoding/json, so restored numbers decode
// as float64 regardless of their original Go type.
func AutosavePlugin(store snapshot.Store) Plugin {
	return func(f *Form) error {
		save := func(ctx context.Context) {
			data, err := json.Marshal(f.Values())
			if err == nil {
				err = store.Save(f.ID(), data)
			}
			if err != nil {
				observability.LogSnapshotError(f.logger, "save", err)
				return
			}
			observability.LogSnapshotSaved(f.logger, len(data))
			f.metrics.RecordSnapshot(ctx, int64(len(data)))
		}
		for _, t := range []EventType{EventChange, EventChangeMany, EventReset} {
			if _, err := f.Subscribe(t, func(ctx context.Context, evt Event) error {
				save(ctx)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}
}

// RestorePlugin loads a previously saved snapshot for the form's ID and
// resets the form to it. A missing snapshot is not an error; the form
// keeps its initial values. Combine with WithID so the form finds its
// earlier snapshots across processes.
func RestorePlugin(store snapshot.Store) Plugin {
	return func(f *Form) error {
		data, err := store.Load(f.ID())
		if errors.Is(err, snapshot.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var vals Values
		if err := json.Unmarshal(data, &vals); err != nil {
			return err
		}
		return f.Publish(context.Background(), ResetEvent{Values: vals})
	}
}
