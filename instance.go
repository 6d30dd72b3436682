package cmpfetch

import (
	"context"
	"sync"
	"time"
)

// DefaultFetchDelay is the minimum time fetch state stays pending when no
// per-instance FetchDelay is configured. It keeps loading indicators from
// flickering on fast fetches.
const DefaultFetchDelay = 200 * time.Millisecond

// InstanceOptions configure an instance's fetch behaviour.
type InstanceOptions struct {
	// FetchDelay is the minimum visible pending duration for a fetch run.
	// Zero means DefaultFetchDelay; negative disables the delay.
	FetchDelay time.Duration

	// FetchOnServer decides whether this instance's fetch runs during
	// server rendering. Nil means always.
	FetchOnServer ServerPolicy
}

// Fetch state field names on the underlying reactive object.
const (
	stateKeyPending   = "pending"
	stateKeyError     = "error"
	stateKeyTimestamp = "timestamp"
)

// FetchState is the reactive fetch status record exposed to component
// authors: pending flag, last normalized error, and completion timestamp
// in Unix milliseconds. It is backed by a host Object so reads from
// templates participate in dependency tracking.
type FetchState struct {
	obj Object
}

func newFetchState(obj Object) *FetchState {
	s := &FetchState{obj: obj}
	_ = obj.Set(stateKeyPending, false)
	_ = obj.Set(stateKeyError, nil)
	_ = obj.Set(stateKeyTimestamp, int64(0))
	return s
}

// Pending reports whether a fetch run is in progress for the instance.
func (s *FetchState) Pending() bool {
	v, _ := s.obj.Get(stateKeyPending)
	b, _ := v.(bool)
	return b
}

// Err returns the normalized error of the last settled run, or nil.
func (s *FetchState) Err() *FetchError {
	v, _ := s.obj.Get(stateKeyError)
	fe, _ := v.(*FetchError)
	return fe
}

// Timestamp returns the Unix-millisecond completion time of the last
// settled run, or zero if no run has completed.
func (s *FetchState) Timestamp() int64 {
	v, _ := s.obj.Get(stateKeyTimestamp)
	ts, _ := v.(int64)
	return ts
}

// Object returns the backing reactive object.
func (s *FetchState) Object() Object { return s.obj }

// begin flips the state into a fresh pending run.
func (s *FetchState) begin() {
	_ = s.obj.Set(stateKeyPending, true)
	_ = s.obj.Set(stateKeyError, nil)
}

// finish records the run outcome. A nil err clears any previous error.
func (s *FetchState) finish(err *FetchError, ts int64) {
	if err != nil {
		_ = s.obj.Set(stateKeyError, err)
	} else {
		_ = s.obj.Set(stateKeyError, nil)
	}
	_ = s.obj.Set(stateKeyPending, false)
	_ = s.obj.Set(stateKeyTimestamp, ts)
}

// setErr records an error outside a run (payload error markers).
func (s *FetchState) setErr(err *FetchError) {
	_ = s.obj.Set(stateKeyError, err)
}

// Instance is the per-component handle this module coordinates around. The
// host glue creates one per mounting component via Runtime.NewInstance,
// attaches the rendered root Node, runs Mount before the component's
// content is attached, and calls Release on teardown.
type Instance struct {
	rt     *Runtime
	handle uint64
	name   string
	opts   InstanceOptions

	mu             sync.Mutex
	state          Object
	fetchState     *FetchState
	node           Node
	fetchKey       int
	hasKey         bool
	hydrated       bool
	mounting       bool
	mounted        bool
	preMount       []func()
	setupDone      bool
	serverDeclared bool
}

// Name returns the component name the instance was created with.
func (i *Instance) Name() string { return i.name }

// State returns the instance's reactive component state, creating it
// through the runtime's object factory on first use.
func (i *Instance) State() Object {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == nil {
		i.state = i.rt.newObject(nil)
	}
	return i.state
}

// FetchState returns the instance's fetch status record, or nil when no
// fetch has been declared client-side.
func (i *Instance) FetchState() *FetchState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fetchState
}

// SetNode attaches the instance's rendered root element metadata. The host
// glue calls this before Mount so hydration can read the fetch-key marker.
func (i *Instance) SetNode(n Node) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.node = n
}

// FetchKey returns the instance's payload index and whether one was
// assigned. Keys are assigned at most once, and only to instances that
// participate in server-side fetch.
func (i *Instance) FetchKey() (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fetchKey, i.hasKey
}

// Hydrated reports whether the instance reused server-fetched data, which
// suppresses the automatic pre-mount fetch.
func (i *Instance) Hydrated() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hydrated
}

// BeforeMount registers fn to run exactly once before the instance's
// content is attached, in registration order. Fails once Mount has run.
func (i *Instance) BeforeMount(fn func()) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.mounted {
		return ErrAlreadyMounted
	}
	i.preMount = append(i.preMount, fn)
	return nil
}

// Mount runs the registered pre-mount hooks in order. The host framework
// calls this exactly once per instance; a second call fails.
func (i *Instance) Mount() error {
	i.mu.Lock()
	if i.mounting || i.mounted {
		i.mu.Unlock()
		return ErrAlreadyMounted
	}
	i.mounting = true
	i.mu.Unlock()

	// Hooks may enqueue further hooks while running; drain by index.
	for n := 0; ; n++ {
		i.mu.Lock()
		if n >= len(i.preMount) {
			i.preMount = nil
			i.mounting = false
			i.mounted = true
			i.mu.Unlock()
			return nil
		}
		fn := i.preMount[n]
		i.mu.Unlock()
		fn()
	}
}

// Release reclaims the instance's registry entries. The host glue calls
// this when the component is destroyed.
func (i *Instance) Release() {
	i.rt.registry.release(i)
}

// ServerFetch runs the instance's declared callbacks during server
// rendering. It is a no-op unless DeclareFetch ran in server context.
func (i *Instance) ServerFetch(ctx context.Context) {
	i.mu.Lock()
	declared := i.serverDeclared
	i.mu.Unlock()
	if !declared {
		return
	}
	i.rt.runFetches(ctx, i)
}

func (i *Instance) assignKey(key int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.hasKey {
		return ErrKeyAssigned
	}
	i.fetchKey = key
	i.hasKey = true
	return nil
}

func (i *Instance) markHydrated() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hydrated = true
}

func (i *Instance) clearHydrated() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hydrated = false
}

func (i *Instance) fetchDelay() time.Duration {
	switch {
	case i.opts.FetchDelay < 0:
		return 0
	case i.opts.FetchDelay == 0:
		return DefaultFetchDelay
	default:
		return i.opts.FetchDelay
	}
}

func (i *Instance) fetchOnServer() bool {
	if i.opts.FetchOnServer == nil {
		return true
	}
	return i.opts.FetchOnServer(i)
}

func (i *Instance) currentNode() Node {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.node
}

// beginSetup reports whether this is the first client-side DeclareFetch
// for the instance; state init and dispatch only happen once.
func (i *Instance) beginSetup() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.setupDone {
		return false
	}
	i.setupDone = true
	return true
}

func (i *Instance) markServerDeclared() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.serverDeclared = true
}

// ensureFetchState lazily creates the reactive fetch status record.
func (i *Instance) ensureFetchState() *FetchState {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.fetchState == nil {
		i.fetchState = newFetchState(i.rt.newObject(nil))
	}
	return i.fetchState
}

type instanceCtxKey struct{}

// WithInstance returns a context carrying the active instance. The host
// glue wraps every component setup call with it.
func WithInstance(ctx context.Context, inst *Instance) context.Context {
	return context.WithValue(ctx, instanceCtxKey{}, inst)
}

// InstanceFromContext resolves the active instance from a setup context.
func InstanceFromContext(ctx context.Context) (*Instance, bool) {
	inst, ok := ctx.Value(instanceCtxKey{}).(*Instance)
	return inst, ok && inst != nil
}
