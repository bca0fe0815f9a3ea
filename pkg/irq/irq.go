// Package irq implements the kernel's interrupt dispatch (spec.md
// §4.8, component L7): a GSI-keyed registry of handler closures and
// the Dispatch entry point the arch layer calls on each IRQ.
//
// Grounded on pkg/blobserver/blobhub.go's per-key listener registry
// (a map[key][]listener guarded by a RWMutex, with register/
// unregister entry points): the same "look up by key, walk a
// registered list" shape, narrowed here from blob-event listeners to
// per-GSI handler chains.
package irq

import (
	"sync"

	"tifflin.dev/kernel/pkg/klog"
)

// GSI is a Global System Interrupt number.
type GSI uint32

// Handler is invoked on IRQ delivery; it returns true once the
// interrupt has been acknowledged, short-circuiting the remaining
// handlers bound to the same GSI (spec.md §4.8).
type Handler func() bool

type binding struct {
	fn Handler
}

// Dispatcher owns the per-GSI handler registry. The kernel normally
// uses one process-wide Dispatcher (spec.md §9: "Global mutable
// state ... model as process-wide state with explicit
// init-before-first-use"); tests construct their own to stay isolated.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[GSI][]*binding
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[GSI][]*binding)}
}

// Default is the process-wide dispatcher the arch layer's interrupt
// entry point calls into.
var Default = NewDispatcher()

// BindObject inserts fn into gsi's handler list, in registration
// order, and returns an IrqHandle whose Release removes it (spec.md
// §4.8: "bind_object(gsi, handler) -> IrqHandle inserts into a
// per-GSI list of closures").
func (d *Dispatcher) BindObject(gsi GSI, fn Handler) *IrqHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := &binding{fn: fn}
	d.handlers[gsi] = append(d.handlers[gsi], b)
	return &IrqHandle{d: d, gsi: gsi, b: b}
}

// Dispatch calls each handler bound to gsi, in registration order,
// stopping at the first one that returns true.
func (d *Dispatcher) Dispatch(gsi GSI) {
	d.mu.RLock()
	bound := append([]*binding(nil), d.handlers[gsi]...)
	d.mu.RUnlock()

	for _, b := range bound {
		if b.fn() {
			return
		}
	}
}

// BoundCount reports how many handlers are currently bound to gsi.
func (d *Dispatcher) BoundCount(gsi GSI) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[gsi])
}

// IrqHandle unbinds its handler when Release is called (spec.md
// §4.8: "IrqHandle drop removes the binding").
type IrqHandle struct {
	d        *Dispatcher
	gsi      GSI
	b        *binding
	released bool
}

// Release removes the handler from its GSI's list. Panics if called
// twice.
func (h *IrqHandle) Release() {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if h.released {
		klog.Panicf("irq: handle for GSI %d released twice", h.gsi)
	}
	h.released = true
	list := h.d.handlers[h.gsi]
	for i, b := range list {
		if b == h.b {
			h.d.handlers[h.gsi] = append(list[:i], list[i+1:]...)
			break
		}
	}
}
