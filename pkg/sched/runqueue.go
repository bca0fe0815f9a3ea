package sched

import (
	"runtime"

	"tifflin.dev/kernel/pkg/coll"
	"tifflin.dev/kernel/pkg/spinlock"
)

// runnableLock and runnable together are the single global
// runnable_threads queue spec.md §4.5 describes: "A global
// runnable_threads queue protected by a spinlock." Work-conserving, no
// CPU affinity (spec.md §5: "all CPUs share one runnable queue").
var (
	runnableLock spinlock.Spinlock
	runnable     coll.VecDeque[*Thread]
)

// bookkeepingCPU is used only to satisfy Spinlock's CPU-owner bookkeeping
// for the run-queue lock itself; any distinct caller still serializes
// correctly through CAS, this just needs to not collide with a real
// thread's CPU id for the lock's re-entrancy check to behave sanely.
const bookkeepingCPU = spinlock.CPUID(0)

func enqueueRunnable(t *Thread) {
	runnableLock.Lock(bookkeepingCPU)
	runnable.PushBack(t)
	runnableLock.Unlock(bookkeepingCPU)
}

func removeRunnable(t *Thread) {
	runnableLock.Lock(bookkeepingCPU)
	runnable.Remove(func(x *Thread) bool { return x == t })
	runnableLock.Unlock(bookkeepingCPU)
}

// RunnableLen reports the number of threads currently enqueued as
// runnable, for tests and diagnostics (spec.md §8 invariant: "For all
// Thread T, T.state == Runnable ⇔ T is enqueued in runnable or currently
// executing").
func RunnableLen() int {
	runnableLock.Lock(bookkeepingCPU)
	defer runnableLock.Unlock(bookkeepingCPU)
	return runnable.Len()
}

// Reschedule implements the algorithm in spec.md §4.5 verbatim:
//
//  1. Capture cur.
//  2. Lock the runnable queue.
//  3. If queue is empty and cur is runnable, return (idle allowed only
//     when no thread exists).
//  4. If cur is runnable, push to tail.
//  5. Pop head as next.
//  6. If next == cur, release and return.
//  7. Otherwise, unlock and invoke the arch switch (here: yield the host
//     goroutine scheduler, since each Thread already is a goroutine).
func Reschedule(cur *Thread) {
	runnableLock.Lock(bookkeepingCPU)

	if runnable.Len() == 0 && cur.State() == Runnable {
		runnableLock.Unlock(bookkeepingCPU)
		return
	}
	if cur.State() == Runnable {
		runnable.PushBack(cur)
	}
	next, ok := runnable.PopFront()
	runnableLock.Unlock(bookkeepingCPU)

	if !ok || next == cur {
		return
	}
	// The "switch_to" the arch layer would perform is, on the host
	// runtime, just yielding this OS thread so the goroutine scheduler
	// can run someone else; there is no register/stack swap to do.
	runtime.Gosched()
}
