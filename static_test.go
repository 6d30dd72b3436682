package cmpfetch

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pthm/cmpfetch/lib/payload"
)

func staticRuntime(t *testing.T, fill func(s *payload.Static), env Env) *TestRuntime {
	t.Helper()
	s := payload.NewStatic()
	if fill != nil {
		fill(s)
	}
	env.Static = true
	return NewTestRuntime(env, WithStaticPayload(s))
}

func TestStaticSequentialKeys(t *testing.T) {
	tr := staticRuntime(t, func(s *payload.Static) {
		s.Record(1, map[string]any{"name": "first"})
		s.Record(2, map[string]any{"name": "second"})
	}, Env{})

	var insts []*Instance
	for i := 0; i < 2; i++ {
		inst, ctx := tr.Setup("card", nil, InstanceOptions{FetchDelay: -1})
		declare(t, ctx, func(context.Context, *Instance) error {
			t.Error("static reconciliation must not fetch")
			return nil
		})
		if err := inst.Mount(); err != nil {
			t.Fatalf("Mount() error = %v", err)
		}
		insts = append(insts, inst)
	}
	tr.Settle()

	// First assignment starts at 1, in encounter order.
	for i, inst := range insts {
		if key, ok := inst.FetchKey(); !ok || key != i+1 {
			t.Errorf("instance %d: FetchKey() = %d, %v, want %d", i, key, ok, i+1)
		}
	}
	if v, _ := insts[0].State().Get("name"); v != "first" {
		t.Errorf("instance 0 name = %v, want %q", v, "first")
	}
	if v, _ := insts[1].State().Get("name"); v != "second" {
		t.Errorf("instance 1 name = %v, want %q", v, "second")
	}
}

func TestStaticPolicyDeclinesKey(t *testing.T) {
	tr := staticRuntime(t, func(s *payload.Static) {
		s.Record(1, map[string]any{"name": "kept"})
	}, Env{})

	// The declining instance renders first but must not consume key 1.
	skip, skipCtx := tr.Setup("live", nil, InstanceOptions{
		FetchDelay:    -1,
		FetchOnServer: BoolPolicy(false),
	})
	var calls atomic.Int32
	declare(t, skipCtx, func(context.Context, *Instance) error {
		calls.Add(1)
		return nil
	})

	take, takeCtx := tr.Setup("static", nil, InstanceOptions{FetchDelay: -1})
	declare(t, takeCtx, func(context.Context, *Instance) error { return nil })

	if err := skip.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if err := take.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	tr.Settle()

	if _, ok := skip.FetchKey(); ok {
		t.Error("declining instance consumed a fetch key")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("declining instance fetched %d times, want 1 (live fetch)", n)
	}
	if key, ok := take.FetchKey(); !ok || key != 1 {
		t.Errorf("FetchKey() = %d, %v, want 1", key, ok)
	}
	if v, _ := take.State().Get("name"); v != "kept" {
		t.Errorf("name = %v, want %q", v, "kept")
	}
}

func TestStaticErrorMarker(t *testing.T) {
	tr := staticRuntime(t, func(s *payload.Static) {
		s.RecordError(1, payload.ErrorMarker{Message: "build failed", StatusCode: 500})
	}, Env{})

	inst, ctx := tr.Setup("card", nil, InstanceOptions{FetchDelay: -1})
	declare(t, ctx, func(context.Context, *Instance) error {
		t.Error("error marker must not trigger a fetch")
		return nil
	})
	if err := inst.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	tr.Settle()

	if err := inst.FetchState().Err(); err == nil || err.Message != "build failed" {
		t.Errorf("Err() = %v, want build failure marker", err)
	}
}

func TestStaticMergeHasNoMethodGuard(t *testing.T) {
	tr := staticRuntime(t, func(s *payload.Static) {
		s.Record(1, map[string]any{"render": "generated"})
	}, Env{})

	inst, ctx := tr.Setup("card", map[string]any{"render": func() {}}, InstanceOptions{FetchDelay: -1})
	declare(t, ctx, func(context.Context, *Instance) error { return nil })
	if err := inst.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	tr.Settle()

	// Build output is trusted: it may overwrite anything.
	if v, _ := inst.State().Get("render"); v != "generated" {
		t.Errorf("render = %v, want %q (no guard on static merges)", v, "generated")
	}
}

func TestStaticPreviewFetchesLive(t *testing.T) {
	tr := staticRuntime(t, func(s *payload.Static) {
		s.Record(1, map[string]any{"name": "stale"})
	}, Env{Preview: true})

	inst, ctx := tr.Setup("card", nil, InstanceOptions{FetchDelay: -1})
	var calls atomic.Int32
	declare(t, ctx, func(_ context.Context, i *Instance) error {
		calls.Add(1)
		return i.State().Set("name", "live")
	})
	if err := inst.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	tr.Settle()

	if n := calls.Load(); n != 1 {
		t.Errorf("callback invoked %d times in preview mode, want 1", n)
	}
	if v, _ := inst.State().Get("name"); v != "live" {
		t.Errorf("name = %v, want %q", v, "live")
	}
}

func TestStaticDisabledWithoutPagePayload(t *testing.T) {
	tr := NewTestRuntime(Env{Static: true})
	inst, ctx := tr.Setup("card", nil, InstanceOptions{FetchDelay: -1})

	var calls atomic.Int32
	declare(t, ctx, func(context.Context, *Instance) error {
		calls.Add(1)
		return nil
	})
	if err := inst.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	tr.Settle()

	if n := calls.Load(); n != 1 {
		t.Errorf("callback invoked %d times, want 1 (no page payload, fetch live)", n)
	}
	if inst.Hydrated() {
		t.Error("instance hydrated without a page payload")
	}
}
