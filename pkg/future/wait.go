package future

import (
	"time"

	"tifflin.dev/kernel/pkg/sched"
)

// WaitSource is implemented by anything that can participate in a
// multiplexed Wait: kernel objects, timers, IRQ sources (spec.md
// §4.7: "any blockable source offers bind_wait(flags, &mut
// SleepObject) -> supported and clear_wait(flags, &mut SleepObject)
// -> pending"). A source whose condition is already satisfied when
// BindWait is called must Signal obj synchronously, so that Wait can
// skip parking entirely (spec.md step 3, "poll each once for
// already-ready conditions").
type WaitSource interface {
	// BindWait registers obj to be signalled when this source becomes
	// ready for any bit in flags. Returns whether flags is supported.
	BindWait(flags uint32, obj *SleepObject) bool
	// ClearWait unregisters obj and returns the subset of flags ready
	// right now.
	ClearWait(flags uint32, obj *SleepObject) uint32
}

// WaitItem is one entry of a Wait call: a source plus the flags of
// interest. Ready is filled in by Wait with whichever flags fired.
type WaitItem struct {
	Source WaitSource
	Flags  uint32
	Ready  uint32
}

// Wait multiplexes readiness across items, parking self until one
// becomes ready or deadline passes, then returns the number of items
// with a non-zero Ready mask (spec.md §4.7 steps 1-6). A zero
// deadline means wait indefinitely.
func Wait(self *sched.Thread, items []WaitItem, deadline time.Time) int {
	obj := NewSleepObject("wait")

	for i := range items {
		items[i].Source.BindWait(items[i].Flags, obj)
	}

	if deadline.IsZero() {
		obj.Wait(self)
	} else {
		waitWithDeadline(self, obj, deadline)
	}

	count := 0
	for i := range items {
		r := items[i].Source.ClearWait(items[i].Flags, obj)
		items[i].Ready = r
		if r != 0 {
			count++
		}
	}
	return count
}

// waitWithDeadline stands in for "the timer subsystem is a bind_wait
// source too" (spec.md §4.7): a time.AfterFunc plays the role of the
// timer subsystem's bind_wait registration, signalling obj if nothing
// else does first.
func waitWithDeadline(self *sched.Thread, obj *SleepObject, deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), obj.Signal)
	defer timer.Stop()
	obj.Wait(self)
}

// Msleep parks self for roughly d, using the same timer-as-bind_wait-
// source path as Wait (spec.md §4.7's msleep).
func Msleep(self *sched.Thread, d time.Duration) {
	obj := NewSleepObject("msleep")
	waitWithDeadline(self, obj, time.Now().Add(d))
}
