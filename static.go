package cmpfetch

// reconcileStatic reuses build-time fetched data on a fully static page.
// It applies when no live request payload exists but a static page payload
// does, the instance's FetchOnServer policy holds, and the app is not in
// preview mode (previewed pages must fetch live).
//
// The instance consumes the next page-scoped sequential key — first key is
// 1 — so reconciliation order must match the render-encounter order the
// build serialized in. Instances whose policy declines do not consume a
// key and fall through to a normal client fetch.
//
// Unlike live hydration there is no method-name guard on the merge: the
// page payload is produced by the build and presumed trusted.
func (rt *Runtime) reconcileStatic(inst *Instance) {
	if rt.static == nil || rt.env.Preview {
		return
	}
	if !inst.fetchOnServer() {
		return
	}

	key := rt.nextStaticKey()
	_ = inst.assignKey(key)
	inst.markHydrated()
	st := inst.ensureFetchState()

	slot := rt.static.Slot(key)
	if slot == nil {
		return
	}
	if slot.Err != nil {
		st.setErr(markerError(slot.Err))
		return
	}

	_ = inst.BeforeMount(func() {
		rt.mergeSlot(inst, slot, false)
	})
}
