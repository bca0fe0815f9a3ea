package future

import (
	"sync/atomic"

	"tifflin.dev/kernel/pkg/sched"
)

const simpleWaiterPoolSize = 8

// simpleWaiter is one poll-and-park slot used by BlockOn. Grounded on
// internal/chanworker.go's pump/worker split: pump hands work to a
// bounded set of workers with an unbounded dynamic fallback; here the
// "work" is "a future that needs polling again" and the fallback is a
// freshly allocated waiter rather than a freshly spawned goroutine.
type simpleWaiter struct {
	obj  SleepObject
	used atomic.Bool
}

var simpleWaiterPool = newSimpleWaiterPool()

func newSimpleWaiterPool() []*simpleWaiter {
	pool := make([]*simpleWaiter, simpleWaiterPoolSize)
	for i := range pool {
		pool[i] = &simpleWaiter{obj: SleepObject{Name: "simple_waiter"}}
	}
	return pool
}

func acquireSimpleWaiter() *simpleWaiter {
	for _, w := range simpleWaiterPool {
		if w.used.CompareAndSwap(false, true) {
			return w
		}
	}
	return &simpleWaiter{obj: SleepObject{Name: "simple_waiter_dynamic"}}
}

func releaseSimpleWaiter(w *simpleWaiter) {
	w.used.Store(false)
}

// Waker is the handle a Future stashes away and calls when it becomes
// pollable again; BlockOn wires it to signal the runner's waiter slot
// (spec.md §4.7: "exposes a no-op Waker that signals the pool entry").
type Waker struct {
	signal func()
}

// Wake notifies whatever is blocked on this Waker's future.
func (w *Waker) Wake() {
	if w.signal != nil {
		w.signal()
	}
}

// Future is a pollable computation, the bridge target for the
// language-level async generator representation described in spec.md
// §4.7. Poll returns (value, true) once ready; ok=false means "not
// yet, call Poll again after Waker fires".
type Future[T any] interface {
	Poll(w *Waker) (T, bool)
}

// BlockOn runs f to completion on self, parking between polls on a
// pooled simpleWaiter (spec.md §4.7: "block_on(f) runs a future
// inside a runner that creates a pooled SimpleWaiter ... and polls
// until Ready").
func BlockOn[T any](self *sched.Thread, f Future[T]) T {
	sw := acquireSimpleWaiter()
	defer releaseSimpleWaiter(sw)

	waker := &Waker{signal: func() { sw.obj.Signal() }}
	for {
		if v, ok := f.Poll(waker); ok {
			return v
		}
		sw.obj.Wait(self)
	}
}
