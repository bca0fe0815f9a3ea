package klock

import (
	"sync/atomic"

	"tifflin.dev/kernel/pkg/sched"
	"tifflin.dev/kernel/pkg/spinlock"
)

// EventChannel is a bool pending flag with a single-waiter queue, safe
// to Post from interrupt context (spec.md §3/§4.6).
type EventChannel struct {
	inner   spinlock.Spinlock
	pending bool
	postDepth atomic.Int32 // number of Post calls in progress, on any thread
	queue   sched.WaitQueue
}

// Sleep parks unless a pending flag is already set, in which case it
// clears the flag and returns immediately (spec.md §4.6).
func (e *EventChannel) Sleep(self *sched.Thread) {
	e.inner.Lock(self.CPU())
	if e.pending {
		e.pending = false
		e.inner.Unlock(self.CPU())
		return
	}
	e.queue.Wait(self, func() { e.inner.Unlock(self.CPU()) })
}

// Post wakes the queued sleeper, or sets the pending flag when nobody is
// queued. postDepth counts the Post calls in progress on any thread; a
// Post that finds another one in progress performs the same
// mark-or-wake step itself. No count of nested posts is kept and nothing
// is deferred to the outer call, so several posts made before the next
// Sleep leave a single pending wakeup.
func (e *EventChannel) Post(self *sched.Thread) {
	if e.postDepth.Add(1) > 1 {
		// Another Post is in progress: do the mark-or-wake step here.
		e.postDepth.Add(-1)
		e.markPendingOrWake(self)
		return
	}
	defer e.postDepth.Add(-1)

	e.markPendingOrWake(self)
}

func (e *EventChannel) markPendingOrWake(self *sched.Thread) {
	e.inner.Lock(self.CPU())
	if e.queue.Len() > 0 {
		e.inner.Unlock(self.CPU())
		e.queue.WakeOne()
		return
	}
	e.pending = true
	e.inner.Unlock(self.CPU())
}
