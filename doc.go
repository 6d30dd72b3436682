// Package cmpfetch provides a data-fetching lifecycle for server-rendered
// component applications: components declare asynchronous fetch callbacks
// that run automatically before mount, and data fetched during server
// rendering is serialized, shipped to the client, and merged back into the
// hydrating component instead of being fetched twice.
//
// cmpfetch is a composition primitive, not a framework. It coordinates with
// a host framework through small contracts (Object, Node, Scheduler) and
// never owns rendering, routing, or the update loop.
//
// # Declaring a fetch
//
// During component setup, declare a callback with DeclareFetch. The setup
// context must carry the active instance (the host glue arranges this via
// WithInstance):
//
//	handle, err := cmpfetch.DeclareFetch(ctx, func(ctx context.Context, inst *cmpfetch.Instance) error {
//	    todos, err := api.ListTodos(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    return inst.State().Set("todos", todos)
//	})
//
// On the client the returned Handle exposes Fetch, an imperative re-trigger,
// and State, a reactive record with Pending, Err, and Timestamp. On the
// server DeclareFetch registers the callback as the instance's server fetch
// hook and returns a nil handle; fetch status is not exposed server-side.
//
// # Fetch state
//
// A run flips Pending true, executes every declared callback concurrently,
// waits for all of them to settle, enforces a minimum visible pending
// duration (FetchDelay, default 200ms) so fast fetches do not flicker
// loading indicators, then records the first error (normalized, see
// Normalize) and the completion timestamp. Errors from callbacks never
// escape as panics or returned errors; authors read them from the state:
//
//	if ferr := handle.State.Err(); ferr != nil {
//	    // render error UI; ferr.StatusCode defaults to 500
//	}
//
// Concurrent triggers of the same declared callback are coalesced: the
// second trigger waits on the first execution's outcome instead of invoking
// the callback again.
//
// # Server rendering and hydration
//
// During server rendering, Runtime.ServerFetch runs an instance's callbacks,
// assigns it a sequential fetch key, and records the resulting state delta
// (or error marker) in the request payload. WithMarker stamps the key onto
// the instance's rendered root element. On the client, an instance whose
// root carries the marker is hydrated: its payload slot is merged into
// reactive state before mount, methods are protected from being overwritten
// by payload keys, error markers land directly in fetch state, and the
// automatic pre-mount fetch is skipped.
//
// Full-static builds carry no live request payload; instead a page payload
// with the same indexing scheme is embedded at build time and reconciled by
// sequential key assignment in render-encounter order.
//
// # Runtime
//
// All process-wide coordination state (the in-flight fetch counter, the
// request-scoped fetch index, payload stores, environment flags) lives on an
// explicit Runtime rather than ambient globals:
//
//	rt := cmpfetch.NewRuntime(cmpfetch.Env{}, cmpfetch.WithScheduler(loop))
//	inst := rt.NewInstance("todos", nil, cmpfetch.InstanceOptions{})
//
// The in-flight counter is incremented when a run starts and decremented on
// the next scheduler tick after it settles, so UI reading Fetching during
// the completing update cycle still observes an outstanding fetch.
package cmpfetch
