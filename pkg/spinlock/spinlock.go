// Package spinlock implements the kernel's lowest-level mutual exclusion
// primitive and the interrupt-hold token that sits beneath every other
// synchronization type in the module (spec.md §4.1, component L0).
//
// Grounded on the atomic waiter/holder bookkeeping in the teacher's
// pkg/syncutil.RWMutexTracker, generalized from a debug wrapper around
// sync.RWMutex into the primitive spec.md requires: a CPU-id compare-
// and-set lock with IRQ-hold semantics (orig: Kernel/Core/arch/amd64/sync.rs).
package spinlock

import (
	"sync/atomic"

	"tifflin.dev/kernel/pkg/klog"
)

// CPUID identifies the logical CPU running the calling goroutine. The
// simulation has no real CPUs, so callers supply a CPUID explicitly
// (pkg/sched assigns one per worker goroutine) instead of reading it out
// of a hardware register.
type CPUID uint32

// noCPU is the sentinel "free" state: CPU-id+1 per spec.md §4.1, so 0
// always means unheld.
const noCPU = 0

// Spinlock acquires by CAS on a held-by field: 0 means free, CPUID+1
// means held by that CPU. It never blocks the goroutine scheduler —
// Lock busy-waits, matching a true spinlock's semantics — but on the
// host runtime that also means a spinning goroutine can starve a
// runtime thread, so callers must keep critical sections short, exactly
// as the kernel itself requires.
type Spinlock struct {
	held atomic.Uint32
}

// Lock blocks until the lock is acquired by cpu. Acquiring a lock this
// CPU already holds deadlocks against itself (the caller must use
// TryLockCPU in paths that may re-enter, e.g. IRQ handlers).
func (l *Spinlock) Lock(cpu CPUID) {
	want := uint32(cpu) + 1
	for !l.held.CompareAndSwap(noCPU, want) {
		// busy-wait; a real implementation would `pause`/yield to the
		// arch layer here.
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *Spinlock) TryLock(cpu CPUID) bool {
	want := uint32(cpu) + 1
	return l.held.CompareAndSwap(noCPU, want)
}

// TryLockCPU is the re-entrant-safe variant used from IRQ contexts
// (spec.md §4.1): it returns false without blocking if this CPU already
// owns the lock, rather than deadlocking.
func (l *Spinlock) TryLockCPU(cpu CPUID) bool {
	if l.HeldByCPU(cpu) {
		return false
	}
	return l.TryLock(cpu)
}

// Unlock releases the lock. Unlocking a lock this CPU doesn't hold is an
// invariant violation and panics via klog, matching §7's "invariant
// violations ... panic with a descriptive message."
func (l *Spinlock) Unlock(cpu CPUID) {
	want := uint32(cpu) + 1
	if !l.held.CompareAndSwap(want, noCPU) {
		klog.Panicf("spinlock: unlock by cpu %d that does not hold the lock", cpu)
	}
}

// HeldByCPU reports whether cpu currently holds the lock.
func (l *Spinlock) HeldByCPU(cpu CPUID) bool {
	return l.held.Load() == uint32(cpu)+1
}

// IsLocked reports whether any CPU holds the lock.
func (l *Spinlock) IsLocked() bool {
	return l.held.Load() != noCPU
}
