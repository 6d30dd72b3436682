package cmpfetch

import (
	"context"
	"reflect"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/pthm/cmpfetch/lib/payload"
)

// runFetches executes every callback declared for the instance and tracks
// the run in fetch state. No-op when nothing is declared.
//
// All callbacks start together and the run completes only after all have
// settled; when several fail, the first error wins and the rest are
// dropped. On the client the pending state stays visible for at least the
// instance's fetch delay. The in-flight counter decrement is deferred to
// the next scheduler tick so UI reading it during the completing update
// cycle still sees the fetch as outstanding.
func (rt *Runtime) runFetches(ctx context.Context, inst *Instance) {
	entries := rt.registry.get(inst)
	if len(entries) == 0 {
		return
	}

	rt.fetching.Add(1)
	inst.clearHydrated()
	st := inst.ensureFetchState()
	st.begin()
	start := time.Now()

	p := pool.New().WithErrors().WithFirstError()
	for _, e := range entries {
		e := e
		p.Go(func() error {
			return rt.flights.run(ctx, e, inst)
		})
	}
	err := p.Wait()

	// Server renders have no loading indicator to keep stable.
	if !rt.env.Server {
		if remain := inst.fetchDelay() - time.Since(start); remain > 0 {
			time.Sleep(remain)
		}
	}

	var ferr *FetchError
	if err != nil {
		ferr = Normalize(err)
		rt.log.Debug("fetch run failed",
			zap.String("instance", inst.name),
			zap.Int("statusCode", ferr.StatusCode),
			zap.String("message", ferr.Message))
	}
	st.finish(ferr, time.Now().UnixMilli())

	rt.scheduler.NextTick(func() {
		rt.fetching.Add(-1)
	})
}

// startRun launches an orchestrated run without blocking the caller;
// Runtime.Wait observes its completion. Panics from the run itself are
// contained by the callback recovery in the coalescer.
func (rt *Runtime) startRun(ctx context.Context, inst *Instance) {
	rt.runs.Go(func() {
		rt.runFetches(ctx, inst)
	})
}

// ServerFetch drives one instance's fetch during server rendering: it
// assigns the next sequential fetch key, runs the declared callbacks, and
// records the resulting state delta (or error marker) in the request
// payload. Call it in render-encounter order — client hydration looks the
// slot up positionally.
//
// It returns the assigned key, or false when the instance takes no part in
// server-side fetch (nothing declared, or its FetchOnServer policy said
// no).
func (rt *Runtime) ServerFetch(ctx context.Context, inst *Instance) (int, bool) {
	if !rt.env.Server {
		return 0, false
	}
	if len(rt.registry.get(inst)) == 0 {
		return 0, false
	}
	if !inst.fetchOnServer() {
		return 0, false
	}

	before := snapshotState(inst.State())
	key := rt.NextFetchKey()
	if err := inst.assignKey(key); err != nil {
		return 0, false
	}

	inst.ServerFetch(ctx)

	if rt.payload != nil {
		if ferr := inst.ensureFetchState().Err(); ferr != nil {
			rt.payload.RecordError(key, payload.ErrorMarker{
				Message:    ferr.Message,
				StatusCode: ferr.StatusCode,
			})
		} else {
			rt.payload.Record(key, stateDelta(before, inst.State()))
		}
	}
	return key, true
}

// snapshotState copies the serializable fields of a state object.
func snapshotState(state Object) map[string]any {
	out := make(map[string]any)
	for _, k := range state.Keys() {
		if v, ok := state.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// stateDelta returns the fields the fetch added or changed, skipping
// functions, which cannot be serialized.
func stateDelta(before map[string]any, state Object) map[string]any {
	out := make(map[string]any)
	for _, k := range state.Keys() {
		v, ok := state.Get(k)
		if !ok || isFunc(v) {
			continue
		}
		if prev, had := before[k]; had && reflect.DeepEqual(prev, v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// Handle is what DeclareFetch returns to component authors on the client.
type Handle struct {
	inst *Instance

	// State is the reactive fetch status record for the instance.
	State *FetchState
}

// Fetch re-runs every callback declared for the instance and returns once
// the run has settled. Errors land in State, never in a return value;
// concurrent calls share in-flight callback executions.
func (h *Handle) Fetch(ctx context.Context) {
	h.inst.rt.runFetches(ctx, h.inst)
}

// Instance returns the instance the handle is bound to.
func (h *Handle) Instance() *Instance { return h.inst }
