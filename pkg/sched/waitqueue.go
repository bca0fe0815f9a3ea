package sched

import (
	"tifflin.dev/kernel/pkg/coll"
	"tifflin.dev/kernel/pkg/klog"
	"tifflin.dev/kernel/pkg/spinlock"
)

// WaitQueue is a FIFO of threads parked with RunState ListWait(this)
// (spec.md §3/§4.5). pkg/klock's Mutex, RwLock, Semaphore and
// EventChannel and pkg/future's Condvar are built on it, the way the original kernel's blocking primitives
// share a single WaitQueue type (orig: Kernel/Core/sync/mutex.rs uses
// the same queue module as Core/threads).
type WaitQueue struct {
	lock spinlock.Spinlock
	q    coll.VecDeque[*Thread]
}

// Wait atomically: transitions t to ListWait(this queue), appends it to
// the queue, releases the caller-supplied lock (which protects whatever
// boolean condition the caller is waiting on — a Mutex's `held` flag, a
// RwLock's reader count, ...), and parks. On wake it re-asserts
// Runnable, matching spec.md §4.5's WaitQueue.wait contract exactly:
// "atomically transitions the current thread to ListWait(self), appends
// it to the queue, drops the caller's spinlock ..., and reschedules. On
// wake, re-asserts state Runnable."
func (w *WaitQueue) Wait(t *Thread, release func()) {
	t.AssertNotDead()

	w.lock.Lock(t.CPU())
	t.setState(ListWait)
	w.q.PushBack(t)
	w.lock.Unlock(t.CPU())

	release()
	removeRunnable(t) // a ListWait thread must never also sit in the runnable queue (invariant 3)

	t.park()

	t.setState(Runnable)
	enqueueRunnable(t)
}

// WakeOne pops the head waiter, if any, and wakes it, returning whether
// a waiter was woken. The woken thread's state is left Runnable by the
// time WakeOne returns (it races park() internally, but park() only
// returns after wake() has already set Runnable).
func (w *WaitQueue) WakeOne() bool {
	w.lock.Lock(bookkeepingCPU)
	t, ok := w.q.PopFront()
	w.lock.Unlock(bookkeepingCPU)
	if !ok {
		return false
	}
	t.wake()
	return true
}

// WakeAll wakes every waiter currently queued, returning the count.
func (w *WaitQueue) WakeAll() int {
	n := 0
	for w.WakeOne() {
		n++
	}
	return n
}

// Len reports the number of threads currently parked in the queue.
func (w *WaitQueue) Len() int {
	w.lock.Lock(bookkeepingCPU)
	defer w.lock.Unlock(bookkeepingCPU)
	return w.q.Len()
}

// Remove drops t from the queue without waking it — used when a wait is
// cancelled out from under the parked thread (e.g. a timeout firing
// before a WakeOne); panics if t isn't actually queued, since that would
// mean a caller double-cancelled.
func (w *WaitQueue) Remove(t *Thread) {
	w.lock.Lock(bookkeepingCPU)
	_, ok := w.q.Remove(func(x *Thread) bool { return x == t })
	w.lock.Unlock(bookkeepingCPU)
	if !ok {
		klog.Panicf("sched: WaitQueue.Remove of thread %d not present in queue", t.id)
	}
}
