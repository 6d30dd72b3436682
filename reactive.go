package cmpfetch

import (
	"fmt"
	"sort"
	"sync"
)

// MapObject is the default Object implementation: a mutex-guarded key/value
// bag with watcher notification on assignment. Hosts with a real reactivity
// system supply their own Object via WithObjects; MapObject exists so the
// module (and its tests) work standalone.
type MapObject struct {
	mu       sync.RWMutex
	values   map[string]any
	readOnly map[string]struct{}
	watchers []func(key string)
}

// NewMapObject creates a MapObject seeded with the given values.
func NewMapObject(initial map[string]any) *MapObject {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MapObject{values: values}
}

func (o *MapObject) Get(key string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[key]
	return v, ok
}

// Set assigns a field, creating it if absent, and notifies watchers.
// Assigning a read-only key fails with ErrReadOnlyKey.
func (o *MapObject) Set(key string, value any) error {
	o.mu.Lock()
	if _, ro := o.readOnly[key]; ro {
		o.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrReadOnlyKey, key)
	}
	o.values[key] = value
	watchers := o.watchers
	o.mu.Unlock()

	for _, w := range watchers {
		w(key)
	}
	return nil
}

func (o *MapObject) Has(key string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.values[key]
	return ok
}

// Keys returns the field names in sorted order.
func (o *MapObject) Keys() []string {
	o.mu.RLock()
	keys := make([]string, 0, len(o.values))
	for k := range o.values {
		keys = append(keys, k)
	}
	o.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Watch registers fn to be called with the key of every assignment.
func (o *MapObject) Watch(fn func(key string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.watchers = append(o.watchers, fn)
}

// MarkReadOnly makes subsequent Set calls on the given keys fail.
func (o *MapObject) MarkReadOnly(keys ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.readOnly == nil {
		o.readOnly = make(map[string]struct{}, len(keys))
	}
	for _, k := range keys {
		o.readOnly[k] = struct{}{}
	}
}
