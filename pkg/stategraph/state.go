package stategraph

import (
	"fmt"
	"reflect"
	"sort"
)

// Reducer combines an existing value with an incoming one when a state key
// is written. A key's reducer is fixed at graph-definition time and applies
// to every write for that key over the graph's lifetime.
type Reducer func(existing, incoming any) (any, error)

// Replace returns a reducer where the incoming value overwrites the old one.
// This is the default for keys with no registered reducer.
func Replace() Reducer {
	return func(_, incoming any) (any, error) {
		return incoming, nil
	}
}

// Append returns a reducer that appends incoming values to an ordered
// sequence, preserving arrival order. Incoming slices are appended
// element-wise; any other value is appended as a single element.
// A nil incoming value is a no-op.
func Append() Reducer {
	return func(existing, incoming any) (any, error) {
		seq, err := toSequence(existing)
		if err != nil {
			return nil, err
		}
		if incoming == nil {
			return seq, nil
		}
		rv := reflect.ValueOf(incoming)
		if rv.Kind() == reflect.Slice {
			for i := 0; i < rv.Len(); i++ {
				seq = append(seq, rv.Index(i).Interface())
			}
			return seq, nil
		}
		return append(seq, incoming), nil
	}
}

// toSequence normalizes an existing value into a []any sequence.
func toSequence(existing any) ([]any, error) {
	if existing == nil {
		return nil, nil
	}
	if seq, ok := existing.([]any); ok {
		// Copy so the prior snapshot's slice is never shared with the new version.
		out := make([]any, len(seq))
		copy(out, seq)
		return out, nil
	}
	rv := reflect.ValueOf(existing)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return nil, fmt.Errorf("existing value is not a sequence: %T", existing)
}

// Update is a node's partial state update: the keys it wants written,
// with values combined into the store by each key's reducer.
type Update map[string]any

// State is an immutable, versioned snapshot of the graph's key-value state.
// Snapshots are safe to retain and compare; the executor never mutates a
// previously returned State.
type State struct {
	values  map[string]any
	version int
}

// Version returns the state's version number. Version 0 is the empty
// initial state; every merged step produces a new version.
func (s State) Version() int {
	return s.version
}

// Get returns the value for key and whether it is present.
func (s State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has returns true if key is present.
func (s State) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns all keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a shallow copy of the full mapping.
func (s State) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (s State) String(key, defaultVal string) string {
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
// float64 values with no fractional part convert (JSON decoding produces float64).
func (s State) Int(key string, defaultVal int) int {
	switch v := s.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (s State) Bool(key string, defaultVal bool) bool {
	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return defaultVal
}

// restoredState builds a snapshot from decoded values. Used by codecs when
// rehydrating a checkpoint.
func restoredState(values map[string]any, version int) State {
	vs := make(map[string]any, len(values))
	for k, v := range values {
		vs[k] = v
	}
	return State{values: vs, version: version}
}

// Store is the ordered, versioned state store. It is exclusively owned by
// one executor per run; nodes and routers only ever see read-only State
// snapshots, so the store needs no internal locking.
type Store struct {
	reducers map[string]Reducer
	state    State
}

// NewStore creates a store with the given per-key reducers. Keys absent
// from the map are implicitly registered with Replace on first write.
func NewStore(reducers map[string]Reducer) *Store {
	rs := make(map[string]Reducer, len(reducers))
	for k, r := range reducers {
		rs[k] = r
	}
	return &Store{reducers: rs}
}

// newStoreAt creates a store whose current snapshot is a restored state.
// Used when resuming a run from a checkpoint.
func newStoreAt(reducers map[string]Reducer, restored State) *Store {
	st := NewStore(reducers)
	st.state = restored
	return st
}

// Snapshot returns the current immutable state version.
func (st *Store) Snapshot() State {
	return st.state
}

// Merge applies a whole scheduling step's partial updates as one atomic
// batch and returns the new state version. Updates are applied in batch
// order; within one update, keys are applied in sorted order, so the same
// batch always yields the same value. If any reducer fails the prior
// version remains current and a *ReducerError is returned.
func (st *Store) Merge(batch []Update) (State, error) {
	if len(batch) == 0 {
		return st.state, nil
	}

	next := make(map[string]any, len(st.state.values))
	for k, v := range st.state.values {
		next[k] = v
	}

	for _, upd := range batch {
		keys := make([]string, 0, len(upd))
		for k := range upd {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			red, ok := st.reducers[k]
			if !ok {
				red = Replace()
				st.reducers[k] = red
			}
			merged, err := applyReducer(red, k, next[k], upd[k])
			if err != nil {
				return st.state, err
			}
			next[k] = merged
		}
	}

	st.state = State{values: next, version: st.state.version + 1}
	return st.state, nil
}

// applyReducer runs a reducer with panic containment so a misbehaving
// custom reducer surfaces as a ReducerError, not a crashed run.
func applyReducer(red Reducer, key string, existing, incoming any) (merged any, err error) {
	defer func() {
		if r := recover(); r != nil {
			merged = nil
			err = &ReducerError{Key: key, Err: fmt.Errorf("reducer panicked: %v", r)}
		}
	}()

	merged, rerr := red(existing, incoming)
	if rerr != nil {
		return nil, &ReducerError{Key: key, Err: rerr}
	}
	return merged, nil
}
