package cmpfetch

import (
	"context"
)

// DeclareFetch registers a data-loading callback for the component
// instance carried by the setup context. It must be called during setup;
// without an active instance it fails with ErrInvalidContext.
//
// In server context the callback is wired as the instance's server fetch
// hook (driven later by Runtime.ServerFetch) and the returned handle is
// nil: fetch status is not exposed server-side.
//
// In client context the first call initializes fetch state, schedules the
// automatic pre-mount run, and reconciles against server-rendered data:
// an instance whose root node carries a fetch-key marker is hydrated from
// the request payload; on a full-static page the embedded page payload is
// reconciled instead; otherwise the scheduled automatic run is the only
// trigger. A hydrated instance skips the automatic run entirely.
//
// Further calls on the same instance append callbacks to the same
// orchestrated run; each call returns a handle bound to the instance.
func DeclareFetch(ctx context.Context, fn Fetch) (*Handle, error) {
	inst, ok := InstanceFromContext(ctx)
	if !ok {
		return nil, ErrInvalidContext
	}
	rt := inst.rt

	rt.registry.register(inst, fn)

	if rt.env.Server {
		inst.markServerDeclared()
		return nil, nil
	}

	st := inst.ensureFetchState()

	if inst.beginSetup() {
		// The automatic trigger checks hydration when it executes, not
		// when it is scheduled: reconciliation below may hydrate the
		// instance first.
		runCtx := context.WithoutCancel(ctx)
		if err := inst.BeforeMount(func() {
			if inst.Hydrated() {
				return
			}
			rt.startRun(runCtx, inst)
		}); err != nil {
			return nil, err
		}

		if !rt.reconcileHydration(inst) && rt.env.Static {
			rt.reconcileStatic(inst)
		}
	}

	return &Handle{inst: inst, State: st}, nil
}
