// Package sched implements the kernel's thread objects and scheduler
// (spec.md §4.5, component L4): thread state transitions, the shared
// runnable queue and the reschedule algorithm.
//
// Grounded on internal/chanworker/chanworker.go's pump/worker goroutine-
// queue shape, generalized from "distribute work items across N
// goroutines" into "hold Thread objects in a run queue and hand them
// back to the host runtime's goroutine scheduler to actually execute"
// (orig: Kernel/Core/threads/mod.rs, per _INDEX.md; arch-specific
// threads.rs equivalents for arm/riscv64).
//
// This module runs each kernel Thread as one host goroutine: the real
// concurrency comes from the Go runtime, while Thread/RunState/the
// runnable queue reproduce the original's bookkeeping and invariants so
// that subsystems built on top of it (pkg/klock, pkg/future) see the
// same wait/wake contract the original kernel provides.
package sched

import (
	"sync/atomic"

	"tifflin.dev/kernel/pkg/klog"
	"tifflin.dev/kernel/pkg/spinlock"
)

// ID uniquely identifies a thread.
type ID uint64

// RunState is one of the states spec.md §3 enumerates for Thread.
type RunState int32

const (
	Runnable RunState = iota
	ListWait          // parked in some WaitQueue
	EventWait         // parked on a SleepObject
	Sleeping          // parked with a wake deadline
	Dead
)

func (s RunState) String() string {
	switch s {
	case Runnable:
		return "Runnable"
	case ListWait:
		return "ListWait"
	case EventWait:
		return "EventWait"
	case Sleeping:
		return "Sleeping"
	case Dead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// Thread is a kernel execution context (spec.md §3 Thread). AddressSpace
// is left untyped (any) here: pkg/vmem owns the concrete AddressSpace
// type, and Thread only needs to keep it alive and hand it back to
// callers that dereference it, avoiding an import cycle between sched
// and vmem.
type Thread struct {
	id           ID
	state        atomic.Int32
	exitCode     atomic.Int32
	parkCh       chan struct{} // buffered 1; Wake sends, Park receives
	AddressSpace any
	Name         string
}

var nextID atomic.Uint64

// New constructs a Thread in the Runnable state. It does not start a
// goroutine; call Spawn for that.
func New(name string) *Thread {
	t := &Thread{
		id:     ID(nextID.Add(1)),
		parkCh: make(chan struct{}, 1),
		Name:   name,
	}
	t.state.Store(int32(Runnable))
	return t
}

// ID returns the thread's identifier.
func (t *Thread) ID() ID { return t.id }

// CPU returns a spinlock.CPUID usable to identify this thread as the
// "owner" of a Spinlock it acquires. In the simulation each Thread runs
// on its own goroutine, so the thread id doubles as the logical CPU id
// spec.md's spinlock/IRQ model expects.
func (t *Thread) CPU() spinlock.CPUID { return spinlock.CPUID(t.id) }

// State returns the thread's current run state.
func (t *Thread) State() RunState { return RunState(t.state.Load()) }

func (t *Thread) setState(s RunState) { t.state.Store(int32(s)) }

// park blocks the calling goroutine until Wake is called. It must only
// be called by the goroutine that *is* this thread.
func (t *Thread) park() { <-t.parkCh }

// wake transitions the thread to Runnable and releases a blocked Park,
// idempotently: waking an already-runnable thread is a no-op, matching
// SleepObject's "signal on an empty object latches" semantics at the
// thread level (the latch itself lives in pkg/future.SleepObject; this
// is the lower-level primitive it's built on).
func (t *Thread) wake() {
	t.setState(Runnable)
	select {
	case t.parkCh <- struct{}{}:
	default:
	}
}

// Spawn starts fn running as this thread's body on a fresh goroutine
// (standing in for "a freshly allocated stack", spec.md §4.5) and
// enqueues the thread onto the global runnable queue. fn receives the
// Thread so it can park/exit itself.
func Spawn(name string, fn func(self *Thread)) *Thread {
	t := New(name)
	enqueueRunnable(t)
	go func() {
		fn(t)
		t.Exit(0)
	}()
	return t
}

// Exit marks the thread Dead with the given exit code and removes it
// from further scheduling consideration (spec.md §4.5: "exit_thread...
// marks state Dead and reschedules").
func (t *Thread) Exit(code int32) {
	t.exitCode.Store(code)
	t.setState(Dead)
	removeRunnable(t)
}

// ExitCode returns the code passed to Exit; only meaningful once State()
// is Dead.
func (t *Thread) ExitCode() int32 { return t.exitCode.Load() }

// ParkUntilWoken transitions the thread to EventWait and blocks until
// WakeFromPark is called. Unlike WaitQueue.Wait, the caller is
// responsible for its own bookkeeping of who is waiting on what (used by
// klock.SequentialQueue and pkg/future's SleepObject, which each keep
// their own waiter structures rather than a plain FIFO).
func (t *Thread) ParkUntilWoken() {
	t.setState(EventWait)
	removeRunnable(t)
	t.park()
	t.setState(Runnable)
	enqueueRunnable(t)
}

// WakeFromPark wakes a thread parked via ParkUntilWoken.
func (t *Thread) WakeFromPark() { t.wake() }

// AssertNotDead panics via klog if the thread has already exited; used
// by subsystems that must not touch a dead thread's state (handle
// dispatch, wait-queue wakeup).
func (t *Thread) AssertNotDead() {
	if t.State() == Dead {
		klog.Panicf("sched: operation on dead thread %d (%s)", t.id, t.Name)
	}
}
