package future

import "tifflin.dev/kernel/pkg/sched"

// Condvar provides broadcast wakeup paired with a caller-held lock,
// used by futures-bridge code the way sync.Cond is used in ordinary
// Go (spec.md §4.7: "Condvar ... provided"). Built on sched.WaitQueue
// rather than SleepObject: unlike the single-waiter primitives above,
// a Condvar legitimately has many threads parked on it at once.
type Condvar struct {
	queue sched.WaitQueue
}

// Wait releases the lock via unlock, parks until Signal or Broadcast,
// then returns; as with sync.Cond, the caller must re-acquire its own
// lock and re-check its condition afterwards.
func (c *Condvar) Wait(self *sched.Thread, unlock func()) {
	c.queue.Wait(self, unlock)
}

// Signal wakes one waiter, if any.
func (c *Condvar) Signal() { c.queue.WakeOne() }

// Broadcast wakes every waiter.
func (c *Condvar) Broadcast() { c.queue.WakeAll() }
