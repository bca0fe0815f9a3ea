package spinlock

import (
	"strconv"
	"sync"
	"sync/atomic"

	"tifflin.dev/kernel/pkg/klog"
)

// InterruptState models whether a simulated CPU currently accepts IRQ
// dispatch, as reported by InterruptsEnabled. pkg/irq's Dispatch does
// not consult it.
type InterruptState struct {
	mu      sync.Mutex
	enabled map[CPUID]bool
	stacks  map[CPUID][]string // per-CPU LIFO of HeldInterrupts generations, for nesting checks
}

// globalInterrupts is the single process-wide interrupt-enable table;
// every CPU starts with interrupts enabled, matching boot state.
var globalInterrupts = &InterruptState{
	enabled: make(map[CPUID]bool),
	stacks:  make(map[CPUID][]string),
}

// heldGeneration numbers HoldInterrupts calls so that every token on a
// per-CPU stack is distinct, even for nested holds on one goroutine.
var heldGeneration atomic.Uint64

func (s *InterruptState) isEnabled(cpu CPUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.enabled[cpu]
	return !ok || v // default enabled
}

func (s *InterruptState) setEnabled(cpu CPUID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[cpu] = v
}

// HeldInterrupts is the RAII token returned by HoldInterrupts: on
// construction it disables interrupts on cpu and records the previous
// state, on Release it restores that state (spec.md §4.1).
//
// The spec leaves non-LIFO drop order as an open question (§9); this
// implementation resolves it by requiring strict LIFO release and
// panicking otherwise, so a call site that violates the ordering fails
// loudly instead of silently restoring the wrong state.
type HeldInterrupts struct {
	cpu      CPUID
	prev     bool
	released bool
	token    string
}

// HoldInterrupts disables interrupt delivery on cpu for the lifetime of
// the returned token. Nesting is permitted: an inner HoldInterrupts call
// just records another generation on the per-CPU stack.
func HoldInterrupts(cpu CPUID) *HeldInterrupts {
	prev := globalInterrupts.isEnabled(cpu)
	globalInterrupts.setEnabled(cpu, false)

	tok := klog.Goroutine() + "#" + strconv.FormatUint(heldGeneration.Add(1), 10)
	globalInterrupts.mu.Lock()
	globalInterrupts.stacks[cpu] = append(globalInterrupts.stacks[cpu], tok)
	globalInterrupts.mu.Unlock()

	return &HeldInterrupts{cpu: cpu, prev: prev, token: tok}
}

// Release restores the interrupt-enable state captured at construction.
// It must be called in the reverse order of construction (outermost
// token released last); an out-of-order release panics.
func (h *HeldInterrupts) Release() {
	if h.released {
		klog.Panicf("spinlock: HeldInterrupts released twice on cpu %d", h.cpu)
	}
	globalInterrupts.mu.Lock()
	stack := globalInterrupts.stacks[h.cpu]
	if len(stack) == 0 || stack[len(stack)-1] != h.token {
		globalInterrupts.mu.Unlock()
		klog.Panicf("spinlock: HeldInterrupts released out of LIFO order on cpu %d", h.cpu)
	}
	globalInterrupts.stacks[h.cpu] = stack[:len(stack)-1]
	globalInterrupts.mu.Unlock()

	h.released = true
	globalInterrupts.setEnabled(h.cpu, h.prev)
}

// InterruptsEnabled reports whether cpu currently accepts IRQ dispatch.
func InterruptsEnabled(cpu CPUID) bool {
	return globalInterrupts.isEnabled(cpu)
}

// resetForTest clears all recorded interrupt state; test-only.
func resetForTest() {
	globalInterrupts.mu.Lock()
	defer globalInterrupts.mu.Unlock()
	globalInterrupts.enabled = make(map[CPUID]bool)
	globalInterrupts.stacks = make(map[CPUID][]string)
}
