package vfs

import (
	"tifflin.dev/kernel/pkg/klock"
	"tifflin.dev/kernel/pkg/sched"
)

// OpenMode is the requested access mode for a File open (spec.md
// §4.10).
type OpenMode int

const (
	// SharedRO admits many concurrent readers; the file's contents
	// may only grow while any SharedRO handle is open.
	SharedRO OpenMode = iota
	// ExclRW admits one handle and fails while any SharedRO, Append or
	// ExclRW handle is open; while it is held, SharedRO, Append and
	// ExclRW opens fail. UniqueRW and Unsynch opens are not checked
	// against it, in either direction.
	ExclRW
	// UniqueRW is counted but otherwise unrestricted; no private copy
	// is made, so the handle shares the node's contents with every
	// other handle.
	UniqueRW
	// Append admits many concurrent writers, each serialised onto
	// the end of the file by the per-node append mutex.
	Append
	// Unsynch performs no locking whatsoever.
	Unsynch
)

type lockCounts struct {
	ro      int
	appendN int
	unique  int
	unsynch int
	excl    bool
}

// LockState is the per-node open-mode lock (spec.md §4.10's
// transition table: "open succeeds only if the existing lock state
// admits the requested mode"). It is a klock.Mutex-guarded counter
// set rather than a single enum, since SharedRO/Append/UniqueRW/
// Unsynch can coexist in different multiplicities.
type LockState struct {
	counts *klock.Mutex[lockCounts]
}

// NewLockState returns an unlocked LockState.
func NewLockState() LockState {
	return LockState{counts: klock.NewMutex(lockCounts{})}
}

// TryOpen attempts to transition the lock state to admit mode,
// returning ErrLocked if the current holders are incompatible.
func (l *LockState) TryOpen(self *sched.Thread, mode OpenMode) error {
	g := l.counts.Lock(self)
	defer g.Unlock()
	c := g.Get()

	switch mode {
	case SharedRO:
		if c.excl {
			return ErrLocked
		}
		c.ro++
	case Append:
		if c.excl {
			return ErrLocked
		}
		c.appendN++
	case ExclRW:
		if c.excl || c.ro > 0 || c.appendN > 0 {
			return ErrLocked
		}
		c.excl = true
	case UniqueRW:
		c.unique++
	case Unsynch:
		c.unsynch++
	default:
		return ErrInvalidParameter
	}
	return nil
}

// Close releases one handle opened with mode, possibly unblocking a
// later TryOpen.
func (l *LockState) Close(self *sched.Thread, mode OpenMode) {
	g := l.counts.Lock(self)
	defer g.Unlock()
	c := g.Get()

	switch mode {
	case SharedRO:
		if c.ro > 0 {
			c.ro--
		}
	case Append:
		if c.appendN > 0 {
			c.appendN--
		}
	case ExclRW:
		c.excl = false
	case UniqueRW:
		if c.unique > 0 {
			c.unique--
		}
	case Unsynch:
		if c.unsynch > 0 {
			c.unsynch--
		}
	}
}

// Unlocked reports whether no handles of any mode are currently open.
func (l *LockState) Unlocked(self *sched.Thread) bool {
	g := l.counts.Lock(self)
	defer g.Unlock()
	c := g.Get()
	return c.ro == 0 && c.appendN == 0 && c.unique == 0 && c.unsynch == 0 && !c.excl
}
