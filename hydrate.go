package cmpfetch

import (
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/pthm/cmpfetch/lib/payload"
)

// MarkerAttr is the attribute carrying the server-assigned fetch key on an
// instance's rendered root element.
const MarkerAttr = "data-fetch-key"

// reconcileHydration reuses server-fetched data for an instance whose
// rendered root carries a fetch-key marker. It reports whether a marker
// was found; without one the caller falls through to static or fresh
// dispatch.
//
// Error detection is synchronous: a payload error marker lands in fetch
// state immediately and nothing is merged or re-fetched. Data merging is
// deferred to pre-mount. Either way the instance is marked hydrated, which
// suppresses the automatic pre-mount fetch.
func (rt *Runtime) reconcileHydration(inst *Instance) bool {
	node := inst.currentNode()
	if node == nil {
		return false
	}
	raw, ok := node.Attr(MarkerAttr)
	if !ok || raw == "" {
		return false
	}
	key, err := strconv.Atoi(raw)
	if err != nil {
		// Malformed marker: treat the instance as never server-fetched.
		return false
	}

	_ = inst.assignKey(key)
	inst.markHydrated()
	st := inst.ensureFetchState()

	if rt.payload == nil {
		return true
	}
	slot := rt.payload.Slot(key)
	if slot == nil {
		return true
	}
	if slot.Err != nil {
		st.setErr(markerError(slot.Err))
		return true
	}

	_ = inst.BeforeMount(func() {
		rt.mergeSlot(inst, slot, true)
	})
	return true
}

// mergeSlot assigns a payload data bag onto the instance's reactive state,
// in sorted key order for stable diagnostics. With guardMethods set, keys
// whose current value is a function are skipped so payload data can never
// shadow component methods. Per-key assignment failures are isolated:
// logged in dev builds, never fatal, never surfaced in fetch state.
func (rt *Runtime) mergeSlot(inst *Instance, slot *payload.Slot, guardMethods bool) {
	state := inst.State()
	for _, k := range sortedBagKeys(slot.Data) {
		if guardMethods {
			if cur, ok := state.Get(k); ok && isFunc(cur) {
				continue
			}
		}
		if err := state.Set(k, slot.Data[k]); err != nil {
			if rt.env.Dev {
				rt.log.Warn("hydration: cannot assign payload key",
					zap.String("instance", inst.name),
					zap.String("key", k),
					zap.Error(err))
			}
		}
	}
}

func markerError(m *payload.ErrorMarker) *FetchError {
	sc := m.StatusCode
	if sc == 0 {
		sc = DefaultStatusCode
	}
	return &FetchError{Message: m.Message, StatusCode: sc}
}

func sortedBagKeys(bag map[string]any) []string {
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
