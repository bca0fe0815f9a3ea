package abi

import (
	"time"

	"tifflin.dev/kernel/pkg/future"
	"tifflin.dev/kernel/pkg/kobject"
	"tifflin.dev/kernel/pkg/sched"
)

// handleSource adapts a (HandleTable, Handle) pair into a
// future.WaitSource, the same BindWait/ClearWait shape
// kobject.Object already exposes — this is the L11 syscall layer's
// bridge from userspace handles to the L6 wait multiplexer.
type handleSource struct {
	table *kobject.HandleTable
	h     kobject.Handle
}

func (s handleSource) BindWait(flags uint32, obj *future.SleepObject) bool {
	got, err := s.table.BindWait(s.h, flags, obj)
	return err == nil && got != 0
}

func (s handleSource) ClearWait(flags uint32, obj *future.SleepObject) uint32 {
	got, err := s.table.ClearWait(s.h, flags, obj)
	if err != nil {
		return 0
	}
	return got
}

// WaitHandles implements the wait() syscall (spec.md §4.7): it
// multiplexes readiness across a set of (handle, flags) pairs drawn
// straight from user-supplied register slots, parking self until one
// is ready or deadline passes. A zero deadline waits indefinitely; a
// deadline already in the past makes this a non-blocking poll
// (spec.md §5's "wait(items, deadline=0) is a non-blocking poll").
func WaitHandles(self *sched.Thread, table *kobject.HandleTable, handles []kobject.Handle, flags []uint32, deadline time.Time) (ready []uint32, count int) {
	items := make([]future.WaitItem, len(handles))
	for i := range handles {
		items[i] = future.WaitItem{Source: handleSource{table, handles[i]}, Flags: flags[i]}
	}
	count = future.Wait(self, items, deadline)
	ready = make([]uint32, len(items))
	for i := range items {
		ready[i] = items[i].Ready
	}
	return ready, count
}
