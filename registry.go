package cmpfetch

import (
	"context"
	"sync"
)

// Fetch is an author-supplied data-loading callback. It runs before mount
// and on every imperative re-trigger; returned errors are normalized into
// the instance's fetch state and never propagate further.
type Fetch func(ctx context.Context, inst *Instance) error

// fetchEntry is one registered callback. The registration id is the
// coalescing identity: concurrent triggers of the same entry share one
// execution. Identity is per declaration rather than per func pointer —
// distinct closures built from one literal share a code pointer in Go, so
// pointer identity would wrongly coalesce unrelated callbacks.
type fetchEntry struct {
	id uint64
	fn Fetch
}

// registry associates instances with their declared callbacks in
// registration order. It is keyed by the instance's integer handle, never
// the *Instance itself, so holding a registry entry does not keep an
// otherwise unreferenced instance alive; release reclaims the entry on
// teardown.
type registry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64][]*fetchEntry
}

func newRegistry() *registry {
	return &registry{entries: make(map[uint64][]*fetchEntry)}
}

// register appends fn to the instance's callback list, creating the list
// if absent, and returns the new entry.
func (r *registry) register(inst *Instance, fn Fetch) *fetchEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e := &fetchEntry{id: r.nextID, fn: fn}
	r.entries[inst.handle] = append(r.entries[inst.handle], e)
	return e
}

// get returns a snapshot of the instance's callbacks in registration
// order, or nil when none are declared.
func (r *registry) get(inst *Instance) []*fetchEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.entries[inst.handle]
	if len(entries) == 0 {
		return nil
	}
	out := make([]*fetchEntry, len(entries))
	copy(out, entries)
	return out
}

// release drops the instance's callback list.
func (r *registry) release(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, inst.handle)
}
