package vmem

import (
	"tifflin.dev/kernel/pkg/klock"
	"tifflin.dev/kernel/pkg/sched"
)

// FreezeSource owns a user byte range that Freeze/FreezeMut wrappers
// can take read-only or exclusive holds on (spec.md §4.3). Built
// directly on klock.RwLock: Freeze takes a read lock (many concurrent
// freezes may coexist), FreezeMut takes a write lock, and a writer
// thread that touches a frozen range blocks for free because that's
// exactly RwLock's writer-vs-reader contract.
type FreezeSource struct {
	lock *klock.RwLock[[]byte]
}

// NewFreezeSource wraps data for freezing.
func NewFreezeSource(data []byte) *FreezeSource {
	return &FreezeSource{lock: klock.NewRwLock(data)}
}

// Freeze is a read-only hold on a FreezeSource's range (spec.md §4.3:
// "marking the containing pages read-only ... for the lifetime of the
// wrapper").
type Freeze struct {
	guard *klock.ReadGuard[[]byte]
	self  *sched.Thread
}

// Freeze takes a read-only hold, blocking while a FreezeMut is active.
func (s *FreezeSource) Freeze(self *sched.Thread) *Freeze {
	return &Freeze{guard: s.lock.RLock(self), self: self}
}

// Bytes returns the frozen range for reading.
func (f *Freeze) Bytes() []byte { return f.guard.Get() }

// Release ends the hold.
func (f *Freeze) Release() { f.guard.RUnlock(f.self) }

// FreezeMut is an exclusive, kernel-only hold on a FreezeSource's
// range; any other reader or writer blocks until it is released.
type FreezeMut struct {
	guard *klock.WriteGuard[[]byte]
}

// FreezeMut takes an exclusive hold, blocking while any Freeze or
// FreezeMut is active.
func (s *FreezeSource) FreezeMut(self *sched.Thread) *FreezeMut {
	return &FreezeMut{guard: s.lock.Lock(self)}
}

// Bytes returns the frozen range for writing.
func (f *FreezeMut) Bytes() []byte { return *f.guard.Get() }

// Release ends the hold.
func (f *FreezeMut) Release() { f.guard.Unlock() }
