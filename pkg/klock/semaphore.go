package klock

import (
	"tifflin.dev/kernel/pkg/sched"
	"tifflin.dev/kernel/pkg/spinlock"
)

// Semaphore is a counting semaphore with a wait queue, per spec.md §4.6
// ("Semaphore: counting; typical acquire/release with wait queue.").
type Semaphore struct {
	inner spinlock.Spinlock
	count int
	queue sched.WaitQueue
}

// NewSemaphore creates a semaphore with the given initial count.
func NewSemaphore(initial int) *Semaphore {
	return &Semaphore{count: initial}
}

// Acquire blocks until a unit is available, then takes it.
func (s *Semaphore) Acquire(self *sched.Thread) {
	s.inner.Lock(self.CPU())
	if s.count > 0 {
		s.count--
		s.inner.Unlock(self.CPU())
		return
	}
	s.queue.Wait(self, func() { s.inner.Unlock(self.CPU()) })
	// Woken because Release handed its unit directly to us without
	// incrementing count (see Release below): the unit is already
	// ours, so return instead of re-checking count, which would just
	// re-park us forever with nothing left to wake us.
}

// TryAcquire attempts to take a unit without blocking.
func (s *Semaphore) TryAcquire(self *sched.Thread) bool {
	s.inner.Lock(self.CPU())
	defer s.inner.Unlock(self.CPU())
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Release returns a unit, handing it directly to one waiter if any are
// parked (without incrementing count, since the unit is immediately
// spoken for) or adding it back to the pool otherwise.
func (s *Semaphore) Release(self *sched.Thread) {
	s.inner.Lock(self.CPU())
	if s.queue.Len() > 0 {
		s.inner.Unlock(self.CPU())
		s.queue.WakeOne()
		return
	}
	s.count++
	s.inner.Unlock(self.CPU())
}

// Count returns the current number of available units (diagnostic only
// — racy by construction once other goroutines are touching the
// semaphore concurrently).
func (s *Semaphore) Count() int {
	return s.count
}
