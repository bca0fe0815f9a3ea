// Package future implements the kernel's asynchronous waiting and
// futures glue (spec.md §4.7, component L6): SleepObject, the
// cross-subsystem wait() multiplexer, Condvar, a pooled future
// executor and join helpers.
//
// Grounded on internal/chanworker/chanworker.go's worker-pool shape,
// generalized from "N goroutines pulling off one channel" into "a
// small pool of preallocated waiter slots that poll and park" (orig:
// Kernel/Core/futures/simple_waiter.rs). join_both uses
// golang.org/x/sync/errgroup the way an ordinary Go service fans work
// out, where the original hand-rolls a join_both future type.
package future

import (
	"sync"
	"sync/atomic"

	"tifflin.dev/kernel/pkg/klog"
	"tifflin.dev/kernel/pkg/sched"
)

// SleepObject is the universal one-waiter wakeup primitive (spec.md
// §3): a name, a latched "set" flag, the parked thread slot and a
// reference count. At most one thread may be parked in Wait at a
// time; Signal on an empty object latches the flag for the next Wait.
type SleepObject struct {
	Name string

	mu     sync.Mutex
	set    bool
	waiter *sched.Thread
	refs   atomic.Int64
}

// NewSleepObject constructs an unsignalled SleepObject.
func NewSleepObject(name string) *SleepObject {
	return &SleepObject{Name: name}
}

// Signal wakes the parked thread if any, else latches set for the
// next Wait.
func (s *SleepObject) Signal() {
	s.mu.Lock()
	w := s.waiter
	if w == nil {
		s.set = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	w.WakeFromPark()
}

// Wait parks self on the SleepObject, unless a signal is already
// latched, in which case it consumes the latch and returns
// immediately. Panics if another thread is already parked here
// (spec.md invariant: "at most one thread is parked in wait at a
// time").
func (s *SleepObject) Wait(self *sched.Thread) {
	s.mu.Lock()
	if s.set {
		s.set = false
		s.mu.Unlock()
		return
	}
	if s.waiter != nil {
		s.mu.Unlock()
		klog.Panicf("future: SleepObject %q already has a waiter parked", s.Name)
	}
	s.waiter = self
	s.mu.Unlock()

	self.ParkUntilWoken()

	s.mu.Lock()
	s.waiter = nil
	s.mu.Unlock()
}

// Ref returns a new SleepObjectRef, incrementing the reference count.
func (s *SleepObject) Ref() *SleepObjectRef {
	s.refs.Add(1)
	return &SleepObjectRef{obj: s}
}

// RefCount reports the live SleepObjectRef count (spec.md invariant:
// "a SleepObject's ref count >= number of live SleepObjectRefs").
func (s *SleepObject) RefCount() int64 { return s.refs.Load() }

// SleepObjectRef is a weak pointer to a SleepObject that increments
// and decrements its owner's reference count (spec.md §3).
type SleepObjectRef struct {
	obj      *SleepObject
	released atomic.Bool
}

// Get dereferences the ref.
func (r *SleepObjectRef) Get() *SleepObject { return r.obj }

// Release decrements the owning SleepObject's ref count. Panics if
// called twice, or if a thread is currently parked on the object when
// the last ref drops (spec.md: "dropping the last ref while a thread
// is parked is forbidden").
func (r *SleepObjectRef) Release() {
	if !r.released.CompareAndSwap(false, true) {
		klog.Panicf("future: SleepObjectRef for %q released twice", r.obj.Name)
	}
	left := r.obj.refs.Add(-1)
	if left == 0 {
		r.obj.mu.Lock()
		parked := r.obj.waiter != nil
		r.obj.mu.Unlock()
		if parked {
			klog.Panicf("future: last SleepObjectRef for %q dropped while a thread is parked", r.obj.Name)
		}
	}
}
