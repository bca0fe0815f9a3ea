package klock

import (
	"sync/atomic"

	"tifflin.dev/kernel/pkg/sched"
	"tifflin.dev/kernel/pkg/spinlock"
)

// RwLock separates read and write wait queues with writer preference to
// avoid starvation under continuous readers (spec.md §4.6: "Writers
// block while readers>0; readers block while writers>0 (writer
// preference to avoid starvation under continuous readers — tie-break)").
//
// Adapted from pkg/syncutil/lock.go's RWMutexTracker: that type's atomic
// nwaitr/nwaitw/nhaver/nhavew counters become readers/writers/waitingW
// below, generalized from a debug wrapper around sync.RWMutex into the
// actual blocking primitive (parking through pkg/sched.WaitQueue instead
// of delegating to sync.RWMutex).
type RwLock[T any] struct {
	inner spinlock.Spinlock

	readers    int32 // active readers
	writer     bool  // active writer
	waitingW   atomic.Int32
	readQueue  sched.WaitQueue
	writeQueue sched.WaitQueue

	val T
}

// NewRwLock wraps v in a new RwLock.
func NewRwLock[T any](v T) *RwLock[T] { return &RwLock[T]{val: v} }

// ReadGuard grants read access.
type ReadGuard[T any] struct {
	l *RwLock[T]
}

// WriteGuard grants exclusive access.
type WriteGuard[T any] struct {
	l    *RwLock[T]
	self *sched.Thread
}

// RLock acquires a read lock, blocking while a writer holds it or is
// waiting (writer preference).
func (l *RwLock[T]) RLock(self *sched.Thread) *ReadGuard[T] {
	for {
		l.inner.Lock(self.CPU())
		if !l.writer && l.waitingW.Load() == 0 {
			l.readers++
			l.inner.Unlock(self.CPU())
			return &ReadGuard[T]{l: l}
		}
		l.readQueue.Wait(self, func() { l.inner.Unlock(self.CPU()) })
	}
}

// RUnlock releases a read lock, waking a pending writer once the last
// reader leaves.
func (g *ReadGuard[T]) RUnlock(self *sched.Thread) {
	l := g.l
	l.inner.Lock(self.CPU())
	l.readers--
	wake := l.readers == 0 && l.waitingW.Load() > 0
	l.inner.Unlock(self.CPU())
	if wake {
		l.writeQueue.WakeOne()
	}
}

// Get returns the guarded value for reading.
func (g *ReadGuard[T]) Get() T { return g.l.val }

// Lock acquires exclusive access, blocking while any reader or writer
// holds the lock.
func (l *RwLock[T]) Lock(self *sched.Thread) *WriteGuard[T] {
	l.waitingW.Add(1)
	defer l.waitingW.Add(-1)
	for {
		l.inner.Lock(self.CPU())
		if !l.writer && l.readers == 0 {
			l.writer = true
			l.inner.Unlock(self.CPU())
			return &WriteGuard[T]{l: l, self: self}
		}
		l.writeQueue.Wait(self, func() { l.inner.Unlock(self.CPU()) })
	}
}

// Unlock releases exclusive access, preferring to wake a waiting writer
// before any readers (writer preference carries through release order
// too, so a steady stream of writers doesn't starve behind readers that
// arrived after them).
func (g *WriteGuard[T]) Unlock() {
	l := g.l
	l.inner.Lock(g.self.CPU())
	l.writer = false
	hasWriter := l.writeQueue.Len() > 0
	l.inner.Unlock(g.self.CPU())
	if hasWriter {
		l.writeQueue.WakeOne()
		return
	}
	l.readQueue.WakeAll()
}

// Get returns a pointer to the guarded value for writing.
func (g *WriteGuard[T]) Get() *T { return &g.l.val }
