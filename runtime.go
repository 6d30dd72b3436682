package cmpfetch

import (
	"sync/atomic"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/pthm/cmpfetch/lib/payload"
)

// Env describes the execution environment a Runtime operates in.
type Env struct {
	// Server is true during server rendering; false on the client.
	Server bool

	// Static is true for full-static builds, where a page payload stands
	// in for a live request payload.
	Static bool

	// Dev enables development-only diagnostics (hydration merge warnings).
	Dev bool

	// Preview disables static payload reuse so previewed pages fetch live.
	Preview bool
}

// Runtime holds the application-wide fetch coordination state: environment
// flags, the global in-flight counter, payload stores, and the sequential
// fetch-key counters. There are no ambient globals; hosts create one
// Runtime per application (and reset request scope per server request).
type Runtime struct {
	env       Env
	log       *zap.Logger
	scheduler Scheduler
	newObject func(initial map[string]any) Object

	registry *registry
	flights  *coalescer

	fetching atomic.Int64
	runs     conc.WaitGroup

	handles    atomic.Uint64
	requestKey atomic.Int64
	staticKey  atomic.Int64

	payload *payload.Payload
	static  *payload.Static
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(rt *Runtime) { rt.log = log }
}

// WithScheduler sets the host update-loop scheduler used for deferred
// work. Defaults to an inline scheduler that runs tasks immediately.
func WithScheduler(s Scheduler) Option {
	return func(rt *Runtime) { rt.scheduler = s }
}

// WithObjects installs the host framework's reactive object factory.
// Defaults to NewMapObject.
func WithObjects(factory func(initial map[string]any) Object) Option {
	return func(rt *Runtime) { rt.newObject = factory }
}

// WithPayload installs the request payload store: the server records fetch
// results into it, the client reads hydration slots from it.
func WithPayload(p *payload.Payload) Option {
	return func(rt *Runtime) { rt.payload = p }
}

// WithStaticPayload installs the page payload embedded by a full-static
// build.
func WithStaticPayload(s *payload.Static) Option {
	return func(rt *Runtime) { rt.static = s }
}

// NewRuntime creates a runtime for the given environment. Counters start
// at zero; the first assigned fetch key is 1.
func NewRuntime(env Env, opts ...Option) *Runtime {
	rt := &Runtime{
		env:      env,
		registry: newRegistry(),
		flights:  &coalescer{},
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.log == nil {
		rt.log = zap.NewNop()
	}
	if rt.scheduler == nil {
		rt.scheduler = inlineScheduler{}
	}
	if rt.newObject == nil {
		rt.newObject = func(initial map[string]any) Object {
			return NewMapObject(initial)
		}
	}
	return rt
}

// Env returns the runtime's environment flags.
func (rt *Runtime) Env() Env { return rt.env }

// NewInstance creates a component instance bound to this runtime. A nil
// state object is created lazily through the object factory.
func (rt *Runtime) NewInstance(name string, state Object, opts InstanceOptions) *Instance {
	return &Instance{
		rt:     rt,
		handle: rt.handles.Add(1),
		name:   name,
		opts:   opts,
		state:  state,
	}
}

// InFlight returns the number of outstanding fetch runs. Loading bars and
// similar UI poll this through Fetching.
func (rt *Runtime) InFlight() int64 { return rt.fetching.Load() }

// Fetching reports whether any fetch run is outstanding.
func (rt *Runtime) Fetching() bool { return rt.fetching.Load() > 0 }

// Payload returns the request payload store, or nil.
func (rt *Runtime) Payload() *payload.Payload { return rt.payload }

// StaticPayload returns the static page payload, or nil.
func (rt *Runtime) StaticPayload() *payload.Static { return rt.static }

// NextFetchKey assigns the next request-scoped fetch key. Keys are
// sequential in encounter order, starting at 1.
func (rt *Runtime) NextFetchKey() int {
	return int(rt.requestKey.Add(1))
}

// nextStaticKey assigns the next page-scoped fetch key for full-static
// reconciliation. Separate from the request-scoped counter, same scheme.
func (rt *Runtime) nextStaticKey() int {
	return int(rt.staticKey.Add(1))
}

// ResetRequest clears request-scoped state between server renders: the
// fetch-key counter restarts and a fresh payload store is installed.
func (rt *Runtime) ResetRequest() *payload.Payload {
	rt.requestKey.Store(0)
	rt.payload = payload.New()
	return rt.payload
}

// Wait blocks until every fetch run started through the automatic
// pre-mount trigger has settled. SSR glue calls it before serializing the
// payload; tests call it before asserting on fetch state.
func (rt *Runtime) Wait() {
	rt.runs.Wait()
}

// inlineScheduler runs deferred work immediately. Hosts that care about
// tick boundaries install their own Scheduler.
type inlineScheduler struct{}

func (inlineScheduler) NextTick(fn func()) { fn() }
