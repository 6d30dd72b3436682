package cmpfetch

// Object is reactive state as supplied by the host framework: an object
// whose field mutations trigger dependent UI updates. New fields may be
// assigned after creation. Set returns an error when the assignment is
// rejected (for example a read-only field).
//
// MapObject is the default implementation; frameworks with their own
// observable objects adapt them to this interface and install a factory
// with WithObjects.
type Object interface {
	Get(key string) (any, bool)
	Set(key string, value any) error
	Has(key string) bool
	Keys() []string
}

// Node exposes metadata attached to an instance's rendered root element.
// It carries the server-assigned fetch key marker into the client.
type Node interface {
	// Attr returns the string value of the named attribute, if present.
	Attr(name string) (string, bool)
}

// Scheduler enqueues work on the host framework's update loop. NextTick
// runs fn after the current update cycle completes; the orchestrator uses
// it to defer the in-flight counter decrement so UI reading the counter
// during the completing cycle still sees the fetch as outstanding.
//
// lib/loop.Loop satisfies Scheduler.
type Scheduler interface {
	NextTick(fn func())
}

// ServerPolicy decides whether an instance's fetch runs during server
// rendering (and is therefore eligible for payload reuse on the client).
// A nil policy means the fetch always runs on the server.
type ServerPolicy func(inst *Instance) bool

// BoolPolicy returns a ServerPolicy with a fixed answer.
func BoolPolicy(v bool) ServerPolicy {
	return func(*Instance) bool { return v }
}
