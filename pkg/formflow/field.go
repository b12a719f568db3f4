package formflow

import (
	"reflect"
	"sort"
	"sync"
)

// Values holds field values keyed by field name.
type Values map[string]any

// Clone returns a shallow copy. Values inside the map are shared.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Errors holds validation messages keyed by field name. A nil map means
// no findings.
type Errors map[string]string

// Clone returns a copy.
func (e Errors) Clone() Errors {
	if e == nil {
		return nil
	}
	out := make(Errors, len(e))
	for k, msg := range e {
		out[k] = msg
	}
	return out
}

// Field is the state of one form field. An empty Error means the field
// is valid. Fields are immutable values: every mutation constructs a new
// Field rather than editing in place.
type Field struct {
	Key     string
	Value   any
	Error   string
	Touched bool
}

// FieldCallback observes one field's state changes. It receives the
// Field produced by the triggering mutation.
type FieldCallback func(f Field)

// FieldStore holds a form's fields and notifies per-field subscribers.
//
// The key set is fixed at construction; operations naming unknown keys
// are ignored. Value comparison is structural (reflect.DeepEqual), so
// re-setting an equal slice or map is a no-op. All methods are safe for
// concurrent use; callbacks run on the mutating goroutine with internal
// locks released.
type FieldStore struct {
	mu      sync.Mutex
	keys    []string // sorted, fixed at construction
	fields  map[string]Field
	initial Values
	subs    map[string][]*fieldSub
}

// fieldSub is one callback registration. Identity is the pointer itself.
type fieldSub struct {
	fn FieldCallback
}

// NewFieldStore creates a store with one untouched, error-free field per
// initial key. A nil or empty initial map yields a store with no fields.
func NewFieldStore(initial Values) *FieldStore {
	keys := make([]string, 0, len(initial))
	fields := make(map[string]Field, len(initial))
	init := make(Values, len(initial))
	for k, v := range initial {
		keys = append(keys, k)
		fields[k] = Field{Key: k, Value: v}
		init[k] = v
	}
	sort.Strings(keys)

	return &FieldStore{
		keys:    keys,
		fields:  fields,
		initial: init,
		subs:    make(map[string][]*fieldSub),
	}
}

// SetValue updates one field's value. Setting a structurally equal value
// is a no-op. Otherwise the field gains the new value, its error is
// cleared, it becomes touched, and its subscribers are notified.
func (s *FieldStore) SetValue(key string, value any) {
	s.mu.Lock()
	f, ok := s.fields[key]
	if !ok || reflect.DeepEqual(f.Value, value) {
		s.mu.Unlock()
		return
	}
	nf := Field{Key: key, Value: value, Touched: true}
	s.fields[key] = nf
	cbs := s.callbacksLocked(key)
	s.mu.Unlock()

	notify(cbs, nf)
}

// SetValues applies SetValue per key, in sorted key order. Each field's
// subscribers are notified before the next field is processed.
func (s *FieldStore) SetValues(partial Values) {
	for _, key := range sortedKeys(partial) {
		s.SetValue(key, partial[key])
	}
}

// Touch marks a field as touched. Touching an already-touched field is a
// no-op.
func (s *FieldStore) Touch(key string) {
	s.mu.Lock()
	f, ok := s.fields[key]
	if !ok || f.Touched {
		s.mu.Unlock()
		return
	}
	f.Touched = true
	s.fields[key] = f
	cbs := s.callbacksLocked(key)
	s.mu.Unlock()

	notify(cbs, f)
}

// TouchMany marks several fields as touched, in the given order.
func (s *FieldStore) TouchMany(keys []string) {
	for _, key := range keys {
		s.Touch(key)
	}
}

// SetError sets one field's error message without altering its value or
// touched state. An empty msg clears the error. Setting the current
// message again is a no-op.
func (s *FieldStore) SetError(key, msg string) {
	s.mu.Lock()
	f, ok := s.fields[key]
	if !ok || f.Error == msg {
		s.mu.Unlock()
		return
	}
	f.Error = msg
	s.fields[key] = f
	cbs := s.callbacksLocked(key)
	s.mu.Unlock()

	notify(cbs, f)
}

// SetErrors replaces the error state of the whole store: every field
// takes its message from the map, and fields absent from the map have
// their error cleared. Only fields whose message actually changed are
// notified.
func (s *FieldStore) SetErrors(errs Errors) {
	for _, key := range s.Keys() {
		s.SetError(key, errs[key])
	}
}

// Reset restores every field from the snapshot: keys absent from the
// snapshot fall back to the construction-time initial value, errors are
// cleared, and touched state is dropped. Every field's subscribers are
// notified, changed or not. A nil snapshot restores the initial values.
func (s *FieldStore) Reset(snapshot Values) {
	s.mu.Lock()
	notifs := make([]fieldNotif, 0, len(s.keys))
	for _, key := range s.keys {
		v, ok := snapshot[key]
		if !ok {
			v = s.initial[key]
		}
		nf := Field{Key: key, Value: v}
		s.fields[key] = nf
		notifs = append(notifs, fieldNotif{field: nf, cbs: s.callbacksLocked(key)})
	}
	s.mu.Unlock()

	for _, n := range notifs {
		notify(n.cbs, n.field)
	}
}

// Get returns one field's state.
func (s *FieldStore) Get(key string) (Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[key]
	return f, ok
}

// Value returns one field's current value.
func (s *FieldStore) Value(key string) (any, bool) {
	f, ok := s.Get(key)
	return f.Value, ok
}

// Values returns a snapshot of all current values.
func (s *FieldStore) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Values, len(s.fields))
	for k, f := range s.fields {
		out[k] = f.Value
	}
	return out
}

// Slice returns the state of the named fields. Unknown keys are omitted.
func (s *FieldStore) Slice(keys ...string) map[string]Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Field, len(keys))
	for _, k := range keys {
		if f, ok := s.fields[k]; ok {
			out[k] = f
		}
	}
	return out
}

// HasErrors reports whether any field currently carries an error.
func (s *FieldStore) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.fields {
		if f.Error != "" {
			return true
		}
	}
	return false
}

// Keys returns the field keys in sorted order.
func (s *FieldStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// SubscribeField registers a callback for one field's changes.
// Callbacks run in registration order against a snapshot of the
// callback list taken when the mutation fires.
func (s *FieldStore) SubscribeField(key string, fn FieldCallback) Unsubscribe {
	if fn == nil {
		panic("formflow: field callback cannot be nil")
	}
	sub := &fieldSub{fn: fn}
	s.mu.Lock()
	s.subs[key] = append(s.subs[key], sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.subs[key]
		for i, cur := range list {
			if cur == sub {
				s.subs[key] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// callbacksLocked snapshots a field's callback list. Caller holds s.mu.
func (s *FieldStore) callbacksLocked(key string) []*fieldSub {
	list := s.subs[key]
	if len(list) == 0 {
		return nil
	}
	out := make([]*fieldSub, len(list))
	copy(out, list)
	return out
}

// fieldNotif is a pending notification collected under the lock.
type fieldNotif struct {
	field Field
	cbs   []*fieldSub
}

func notify(cbs []*fieldSub, f Field) {
	for _, cb := range cbs {
		cb.fn(f)
	}
}

func sortedKeys(v Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
