package klock

import (
	"sync/atomic"

	"tifflin.dev/kernel/pkg/coll"
	"tifflin.dev/kernel/pkg/sched"
	"tifflin.dev/kernel/pkg/spinlock"
)

// SequentialQueue hands out monotonically increasing waiter tickets and
// wakes them one at a time in ticket order, guaranteeing acknowledgement
// -style single-writer wakeup (spec.md §4.6). This is a direct
// reimplementation of orig: Kernel/Core/async/sequential_queue.rs.
type SequentialQueue struct {
	inner   spinlock.Spinlock
	nextOut uint64 // the ticket allowed to proceed next
	nextIn  atomic.Uint64
	waiters coll.VecMap[uint64, *sched.Thread]
}

// Ticket returned by WaitOn; the next ticket proceeds only once WakeNext
// is called.
type Ticket uint64

// WaitOn allocates a new ticket and blocks self until it is this
// ticket's turn.
func (q *SequentialQueue) WaitOn(self *sched.Thread) Ticket {
	id := q.nextIn.Add(1) - 1

	q.inner.Lock(self.CPU())
	if id == q.nextOut {
		q.inner.Unlock(self.CPU())
		return Ticket(id)
	}
	q.waiters.Insert(id, self)
	q.inner.Unlock(self.CPU())

	self.AssertNotDead()
	self.ParkUntilWoken()
	return Ticket(id)
}

// WakeNext advances past the current ticket, waking whichever thread (if
// any) is waiting on nextOut+1.
func (q *SequentialQueue) WakeNext(self *sched.Thread) {
	q.inner.Lock(self.CPU())
	q.nextOut++
	next := q.nextOut
	waiter, ok := q.waiters.Get(next)
	if ok {
		q.waiters.Remove(next)
	}
	q.inner.Unlock(self.CPU())
	if ok {
		waiter.WakeFromPark()
	}
}
