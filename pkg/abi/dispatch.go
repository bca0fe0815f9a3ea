package abi

import (
	"errors"
	"fmt"
	"sync"

	"tifflin.dev/kernel/pkg/kobject"
	"tifflin.dev/kernel/pkg/sched"
)

// ErrNoSuchSyscall is returned for a class-free id with no registered
// handler.
var ErrNoSuchSyscall = errors.New("abi: no such syscall")

// ClassFreeHandler implements one class-free syscall (spec.md §4.11:
// process/thread lifecycle, logging).
type ClassFreeHandler func(self *sched.Thread, args []uint64) (uint64, error)

// Syscalls is the per-process dispatch table: a small registry of
// class-free handlers plus the process's object handle table,
// grounded on pkg/blobserver's name-keyed handler registry.
type Syscalls struct {
	mu        sync.Mutex
	classFree map[uint64]ClassFreeHandler
	handles   *kobject.HandleTable
}

// NewSyscalls creates a dispatch table bound to handles.
func NewSyscalls(handles *kobject.HandleTable) *Syscalls {
	return &Syscalls{classFree: make(map[uint64]ClassFreeHandler), handles: handles}
}

// RegisterClassFree binds id (which must be below ClassFreeLimit) to
// fn, panicking on an out-of-range id or a duplicate registration.
func (s *Syscalls) RegisterClassFree(id uint64, fn ClassFreeHandler) {
	if id >= ClassFreeLimit {
		panic(fmt.Sprintf("abi: class-free id %#x must be below %#x", id, ClassFreeLimit))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classFree[id]; ok {
		panic(fmt.Sprintf("abi: class-free id %#x already registered", id))
	}
	s.classFree[id] = fn
}

// Dispatch routes one syscall: ids below ClassFreeLimit go to a
// registered ClassFreeHandler; anything else is interpreted as a
// CallWord naming an object-method or handle-drop call.
func (s *Syscalls) Dispatch(self *sched.Thread, id uint64, args []uint64) (uint64, error) {
	if id < ClassFreeLimit {
		s.mu.Lock()
		fn, ok := s.classFree[id]
		s.mu.Unlock()
		if !ok {
			return 0, ErrNoSuchSyscall
		}
		return fn(self, args)
	}

	cw := CallWord(id)
	h := cw.Handle()
	if cw.IsDrop() {
		return 0, s.handles.DropObject(h)
	}
	if cw.IsConsuming() {
		return s.handles.CallMethodVal(h, cw.Method(), args)
	}
	return s.handles.CallMethodRef(h, cw.Method(), args)
}
