// Package kobject implements the kernel's per-process object/handle
// table (spec.md §4.4, component L3): the Object interface every
// handle-addressable kernel resource implements, and HandleTable's
// class-id-encoded 32-bit handles.
//
// Built directly on pkg/coll.SparseVec's slot-reuse semantics: the
// handle-wrap behaviour of spec.md §8 scenario 1 ("dropping the 0th
// slot and allocating again returns a handle whose low 20 bits equal
// 0") falls straight out of SparseVec's free-list reuse.
package kobject

import (
	"errors"
	"fmt"

	"tifflin.dev/kernel/pkg/coll"
	"tifflin.dev/kernel/pkg/future"
)

// ClassID identifies the dynamic type of an Object for O(1) handle
// validation (spec.md §4.4).
type ClassID uint16

const (
	slotBits  = 20
	classBits = 11
	slotMask  = (1 << slotBits) - 1
	classMask = (1 << classBits) - 1

	classShift    = slotBits
	methodCallBit = uint32(1) << 31
)

var (
	// ErrBadObjectClass is returned when a handle's expected class id
	// does not match the stored object's actual class id.
	ErrBadObjectClass = errors.New("kobject: handle class mismatch")
	// ErrNoSuchMethod is returned by an Object when method_id is
	// unrecognised for its class.
	ErrNoSuchMethod = errors.New("kobject: no such method")
	// ErrBadHandle is returned for a handle whose slot is empty.
	ErrBadHandle = errors.New("kobject: invalid handle")
)

// Object is a polymorphic kernel entity (spec.md §3/§4.4): every
// handle-addressable resource (Process, Thread, File, Dir,
// RpcChannel, sockets, GUI groups/windows, driver-registered
// variants, ...) implements it.
type Object interface {
	ClassID() ClassID
	HandleSyscallRef(method uint32, args []uint64) (uint64, error)
	HandleSyscallVal(method uint32, args []uint64) (uint64, error)
	BindWait(flags uint32, obj *future.SleepObject) bool
	ClearWait(flags uint32, obj *future.SleepObject) uint32
	TryClone() (Object, bool)
}

// Handle is the 32-bit value handed to userspace: low 20 bits slot
// index, next 11 bits expected class id, top bit method-call marker
// (distinguishes a method call from a drop, per spec.md §4.4).
type Handle uint32

func encode(slot int, class ClassID) Handle {
	return Handle(uint32(slot)&slotMask | (uint32(class)&classMask)<<classShift | methodCallBit)
}

func (h Handle) slot() int          { return int(uint32(h) & slotMask) }
func (h Handle) class() ClassID     { return ClassID((uint32(h) >> classShift) & classMask) }
func (h Handle) IsMethodCall() bool { return uint32(h)&methodCallBit != 0 }

// HandleTable is a per-process sparse vector of Objects.
type HandleTable struct {
	slots coll.SparseVec[Object]
}

// NewObject inserts obj into the first empty slot (or appends) and
// returns its handle.
func (t *HandleTable) NewObject(obj Object) (Handle, error) {
	if uint32(obj.ClassID())&^uint32(classMask) != 0 {
		return 0, fmt.Errorf("kobject: class id %d exceeds %d bits", obj.ClassID(), classBits)
	}
	idx := t.slots.Insert(obj)
	return encode(idx, obj.ClassID()), nil
}

func (t *HandleTable) lookup(h Handle) (Object, error) {
	obj, ok := t.slots.Get(h.slot())
	if !ok {
		return nil, ErrBadHandle
	}
	if obj.ClassID() != h.class() {
		return nil, ErrBadObjectClass
	}
	return obj, nil
}

// DropObject removes and discards the object named by h.
func (t *HandleTable) DropObject(h Handle) error {
	if _, err := t.lookup(h); err != nil {
		return err
	}
	t.slots.Remove(h.slot())
	return nil
}

// CallMethodRef dispatches a read-only method call (spec.md §4.4:
// "call_method_ref ... read-only borrow").
func (t *HandleTable) CallMethodRef(h Handle, method uint32, args []uint64) (uint64, error) {
	obj, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	return obj.HandleSyscallRef(method, args)
}

// CallMethodVal dispatches a consuming method call, removing the
// object from its slot before invoking it (spec.md §4.4:
// "call_method_val ... consumes the slot").
func (t *HandleTable) CallMethodVal(h Handle, method uint32, args []uint64) (uint64, error) {
	obj, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	t.slots.Remove(h.slot())
	return obj.HandleSyscallVal(method, args)
}

// BindWait registers sleepObj as interested in flags on the handle's
// Object, returning the subset of flags the object actually supports.
func (t *HandleTable) BindWait(h Handle, flags uint32, sleepObj *future.SleepObject) (uint32, error) {
	obj, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	if !obj.BindWait(flags, sleepObj) {
		return 0, nil
	}
	return flags, nil
}

// ClearWait unregisters sleepObj from the handle's Object and returns
// the ready flags.
func (t *HandleTable) ClearWait(h Handle, flags uint32, sleepObj *future.SleepObject) (uint32, error) {
	obj, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	return obj.ClearWait(flags, sleepObj), nil
}

// TryClone duplicates the object behind h into a new handle, if the
// object supports cloning.
func (t *HandleTable) TryClone(h Handle) (Handle, error) {
	obj, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	clone, ok := obj.TryClone()
	if !ok {
		return 0, fmt.Errorf("kobject: object class %d is not cloneable", obj.ClassID())
	}
	return t.NewObject(clone)
}

// Len reports the number of live objects.
func (t *HandleTable) Len() int { return t.slots.Len() }
