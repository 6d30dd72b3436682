// Package loop provides a single-goroutine cooperative task queue: the
// explicit event-loop mapping of a UI framework's "next update tick".
// Tasks run strictly in enqueue order, one at a time; concurrency is
// cooperative interleaving, never parallel execution of queued work.
package loop

import (
	"context"
	"sync"
)

// Loop is a FIFO task queue. The zero value is not usable; call New.
//
// Tasks are executed either by a dedicated Run goroutine or by explicit
// Drain calls (deterministic, test-friendly). Both must not be mixed.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Push enqueues fn. Pushes after Close are dropped.
func (l *Loop) Push(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// NextTick enqueues fn to run after all currently queued tasks. It is an
// alias for Push with scheduler semantics.
func (l *Loop) NextTick(fn func()) { l.Push(fn) }

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs queued tasks on the calling goroutine until the queue is
// empty, including tasks enqueued by the tasks themselves. It returns the
// number of tasks run.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn := l.pop()
		if fn == nil {
			return n
		}
		fn()
		n++
	}
}

// Run serves the loop until ctx is done or the loop is closed. All tasks
// execute on the calling goroutine.
func (l *Loop) Run(ctx context.Context) {
	for {
		for {
			fn := l.pop()
			if fn == nil {
				break
			}
			fn()
		}
		l.mu.Lock()
		closed := l.closed
		pending := len(l.queue)
		l.mu.Unlock()
		if closed && pending == 0 {
			return
		}
		if pending > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Close stops accepting tasks and lets Run return once the queue drains.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue = l.queue[1:]
	return fn
}
