package abi

// Arg is implemented by any typed argument that can project itself
// onto the register-slot ABI (spec.md §4.11: "Argument marshalling
// follows a trait that projects typed arguments onto usize register
// slots; slices become (ptr, len) pairs").
type Arg interface {
	ToRegs() []uint64
}

// Uint64Arg is a scalar argument occupying exactly one register slot.
type Uint64Arg uint64

func (a Uint64Arg) ToRegs() []uint64 { return []uint64{uint64(a)} }

// BoolArg marshals as 0 or 1 in one register slot.
type BoolArg bool

func (a BoolArg) ToRegs() []uint64 {
	if a {
		return []uint64{1}
	}
	return []uint64{0}
}

// SliceArg marshals a user-provided buffer as a (ptr, len) pair. Ptr
// is a raw user-space address; per spec.md §4.11 it must be passed
// through the Freeze layer (pkg/vmem.FreezeSource) before the core
// dereferences it — Marshal only encodes the pointer, it never reads
// through it.
type SliceArg struct {
	Ptr uintptr
	Len int
}

func (a SliceArg) ToRegs() []uint64 { return []uint64{uint64(a.Ptr), uint64(a.Len)} }

// Marshal flattens a sequence of typed arguments into the flat
// register-slot tuple a syscall dispatch sees.
func Marshal(args ...Arg) []uint64 {
	var out []uint64
	for _, a := range args {
		out = append(out, a.ToRegs()...)
	}
	return out
}
