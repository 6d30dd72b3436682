package cmpfetch

import (
	"context"

	"github.com/pthm/cmpfetch/lib/loop"
)

// TestRuntime couples a Runtime to a deterministic loop scheduler for
// tests and host-glue development: deferred work (the in-flight counter
// decrement) only runs when the test drains the loop, so tick-boundary
// behaviour can be asserted instead of raced.
type TestRuntime struct {
	*Runtime

	// Loop receives the runtime's deferred work. Drain it to cross a
	// tick boundary.
	Loop *loop.Loop
}

// NewTestRuntime creates a runtime scheduled on a fresh loop. Additional
// options are applied after the scheduler, so WithScheduler in opts wins.
func NewTestRuntime(env Env, opts ...Option) *TestRuntime {
	l := loop.New()
	all := append([]Option{WithScheduler(l)}, opts...)
	return &TestRuntime{Runtime: NewRuntime(env, all...), Loop: l}
}

// Setup creates an instance with the given initial state and returns it
// together with a setup context carrying it, ready for DeclareFetch.
func (tr *TestRuntime) Setup(name string, data map[string]any, opts InstanceOptions) (*Instance, context.Context) {
	inst := tr.NewInstance(name, tr.newObject(data), opts)
	return inst, WithInstance(context.Background(), inst)
}

// Settle waits for every automatic fetch run to finish, then drains the
// loop so deferred decrements take effect. Call after Mount.
func (tr *TestRuntime) Settle() {
	tr.Wait()
	tr.Loop.Drain()
}
