package formflow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Handler processes a published event. Handlers run synchronously on the
// publishing goroutine, in registration order. A non-nil error aborts the
// remaining fan-out and propagates to the publisher.
type Handler func(ctx context.Context, evt Event) error

// Unsubscribe removes the registration it was returned for.
// Calling it more than once is a no-op.
type Unsubscribe func()

// HubConfig configures event delivery.
type HubConfig struct {
	// FlushDelay bounds how long a deferred event stays parked when no
	// other hub activity triggers an earlier flush.
	// Default: 2ms
	FlushDelay time.Duration

	// OnError is called when a deferred event's delivery fails.
	// Deferred publication has no caller to return the error to.
	OnError func(evt Event, err error)
}

// DefaultHubConfig provides reasonable defaults.
var DefaultHubConfig = HubConfig{
	FlushDelay: 2 * time.Millisecond,
}

// Hub distributes form events to handlers.
//
// Events published while no handler is registered for their type are
// queued. The first Subscribe for that type drains the queue in FIFO
// order before returning, re-reading the handler set per item, then
// discards the queue. An item that finds the handler set empty again
// mid-drain (every handler removed itself) starts a new queue.
//
// PublishDeferred parks an event instead of delivering it. Parked events
// are flushed in FIFO order once the hub goes idle: after the publish,
// subscribe, or unsubscribe call in progress completes, or after
// FlushDelay on a timer, whichever comes first. Deferred publications do
// not flush each other.
type Hub struct {
	config HubConfig

	mu       sync.Mutex
	handlers map[EventType][]*handlerEntry
	queues   map[EventType][]queuedEvent
	parked   []queuedEvent
	depth    int // in-progress non-deferred operations
}

// handlerEntry is one registration. Identity is the pointer itself.
type handlerEntry struct {
	fn   Handler
	once bool
}

// queuedEvent pairs an event with the context it was published under.
type queuedEvent struct {
	ctx context.Context
	evt Event
}

// NewHub creates a hub with the given configuration.
func NewHub(config HubConfig) *Hub {
	if config.FlushDelay <= 0 {
		config.FlushDelay = DefaultHubConfig.FlushDelay
	}
	return &Hub{
		config:   config,
		handlers: make(map[EventType][]*handlerEntry),
		queues:   make(map[EventType][]queuedEvent),
	}
}

// Subscribe registers a handler for one event type and returns its
// deregistration capability.
//
// If events of that type were published before any handler existed, they
// are replayed to the current handler set before Subscribe returns. A
// handler error during the replay aborts it; the remaining items are
// discarded and the error is returned alongside a still-valid Unsubscribe.
func (h *Hub) Subscribe(t EventType, fn Handler) (Unsubscribe, error) {
	return h.subscribe(t, fn, false)
}

// SubscribeOnce registers a handler for a single delivery. The
// registration is removed before the handler runs, so a handler that
// triggers another event of the same type is not re-entered. During a
// queue replay it receives only the first item.
func (h *Hub) SubscribeOnce(t EventType, fn Handler) (Unsubscribe, error) {
	return h.subscribe(t, fn, true)
}

func (h *Hub) subscribe(t EventType, fn Handler, once bool) (Unsubscribe, error) {
	if fn == nil {
		panic("formflow: handler cannot be nil")
	}
	h.enter()
	defer h.exit()

	e := &handlerEntry{fn: fn, once: once}
	h.mu.Lock()
	h.handlers[t] = append(h.handlers[t], e)
	queued := h.queues[t]
	delete(h.queues, t)
	h.mu.Unlock()

	unsub := func() {
		h.enter()
		h.remove(t, e)
		h.exit()
	}

	// Replay events that arrived before the first subscriber.
	for _, q := range queued {
		if err := h.publish(q.ctx, q.evt); err != nil {
			return unsub, err
		}
	}
	return unsub, nil
}

// Publish delivers evt to every handler registered for its type, in
// registration order, on the calling goroutine. The handler set is
// snapshotted first: handlers added or removed during delivery still
// receive (or keep) this event. The first handler error aborts the
// remaining fan-out and is returned.
//
// With no handler registered for the type, the event is queued for the
// type's first subscriber and Publish returns nil.
func (h *Hub) Publish(ctx context.Context, evt Event) error {
	if err := checkEvent(evt); err != nil {
		return err
	}
	h.enter()
	defer h.exit()
	return h.publish(ctx, evt)
}

// PublishDeferred parks evt for delivery after the hub next goes idle.
// It never blocks and reports nothing: delivery errors go to
// HubConfig.OnError.
func (h *Hub) PublishDeferred(ctx context.Context, evt Event) {
	h.mu.Lock()
	h.parked = append(h.parked, queuedEvent{ctx: ctx, evt: evt})
	h.mu.Unlock()

	time.AfterFunc(h.config.FlushDelay, h.flushParked)
}

// publish queues or fans out one event. Callers hold an enter/exit frame.
func (h *Hub) publish(ctx context.Context, evt Event) error {
	h.mu.Lock()
	entries := h.handlers[evt.Type()]
	if len(entries) == 0 {
		h.queues[evt.Type()] = append(h.queues[evt.Type()], queuedEvent{ctx: ctx, evt: evt})
		h.mu.Unlock()
		return nil
	}
	snapshot := make([]*handlerEntry, len(entries))
	copy(snapshot, entries)
	h.mu.Unlock()

	for _, e := range snapshot {
		if e.once && !h.remove(evt.Type(), e) {
			// Another delivery already consumed this registration.
			continue
		}
		if err := e.fn(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// remove deletes an entry from the registration list and reports whether
// it was still registered.
func (h *Hub) remove(t EventType, target *handlerEntry) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.handlers[t]
	for i, e := range entries {
		if e == target {
			h.handlers[t] = append(entries[:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// enter marks the start of a non-deferred hub operation.
func (h *Hub) enter() {
	h.mu.Lock()
	h.depth++
	h.mu.Unlock()
}

// exit marks the end of a non-deferred hub operation and flushes parked
// events once no operation remains in progress.
func (h *Hub) exit() {
	h.mu.Lock()
	h.depth--
	idle := h.depth == 0
	h.mu.Unlock()

	if idle {
		h.flushParked()
	}
}

// flushParked delivers the events parked at the time of the call, FIFO.
// Events parked during the flush wait for their own trigger.
func (h *Hub) flushParked() {
	h.mu.Lock()
	if h.depth > 0 || len(h.parked) == 0 {
		h.mu.Unlock()
		return
	}
	batch := h.parked
	h.parked = nil
	h.mu.Unlock()

	for _, q := range batch {
		err := checkEvent(q.evt)
		if err == nil {
			err = h.publish(q.ctx, q.evt)
		}
		if err != nil && h.config.OnError != nil {
			h.config.OnError(q.evt, err)
		}
	}
}

// checkEvent enforces the closed vocabulary.
func checkEvent(evt Event) error {
	if evt == nil {
		return ErrNilEvent
	}
	switch evt.(type) {
	case ChangeEvent, ChangeManyEvent, TouchEvent, TouchManyEvent,
		ResetEvent, ErrorsEvent, ValidateEvent, ValidationStartEvent, ValidatedEvent:
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEventType, evt)
	}
}

// HandlerCount returns the number of handlers registered for a type.
// Useful for testing.
func (h *Hub) HandlerCount(t EventType) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers[t])
}

// QueuedCount returns the number of events queued for a type.
// Useful for testing.
func (h *Hub) QueuedCount(t EventType) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queues[t])
}
