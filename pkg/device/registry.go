// Package device implements the kernel's device manager (spec.md
// §4.9, component L8): bus/driver registration, device enumeration,
// driver scoring and binding, plus I/O binding rate limiting and
// generation tokens for bound devices.
//
// Grounded on pkg/blobserver/registry.go's type-keyed constructor
// registry (RegisterStorageConstructor/CreateStorage guarded by a
// package mutex, panicking on double-registration): the same
// register-then-look-up-by-key shape, generalized here from a 1:1
// type lookup into scoring every registered driver against a device
// and binding the highest scorer (spec.md §4.9: "The manager
// enumerates buses, scores drivers, and binds the highest-scoring
// driver per device").
package device

import (
	"errors"
	"fmt"
	"sync"

	"tifflin.dev/kernel/pkg/irq"
)

// ErrNoDriver is returned when no registered driver scores above zero
// for a device.
var ErrNoDriver = errors.New("device: no driver claims this device")

// BusManager enumerates the devices on one bus (spec.md §4.9).
type BusManager interface {
	BusType() string
	AttrNames() []string
}

// BusDevice is one addressable device on a bus.
type BusDevice interface {
	Addr() string
	GetAttr(name string) (string, bool)
	SetAttr(name, value string) error
	SetPower(on bool) error
	BindIO(blockID uint64) (*IOBinding, error)
	GetIRQ(idx int) (irq.GSI, error)
}

// Driver scores and binds to BusDevices of its bus type.
type Driver interface {
	Name() string
	BusType() string
	Handles(dev BusDevice) int
	Bind(dev BusDevice) (DriverInstance, error)
}

// DriverInstance is the live binding created by Driver.Bind, retained
// for the life of the device (spec.md §4.9).
type DriverInstance interface {
	Driver() string
}

type boundDevice struct {
	driver     Driver
	instance   DriverInstance
	generation Generation
}

// Registry is the device manager.
type Registry struct {
	mu      sync.Mutex
	buses   map[string]BusManager
	drivers []Driver
	bound   map[string]*boundDevice
}

// NewRegistry creates an empty device manager.
func NewRegistry() *Registry {
	return &Registry{
		buses: make(map[string]BusManager),
		bound: make(map[string]*boundDevice),
	}
}

// RegisterBus adds a bus manager. Panics if its bus type is already
// registered, mirroring blobserver's double-registration panic.
func (r *Registry) RegisterBus(bus BusManager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buses[bus.BusType()]; ok {
		panic("device: bus type already registered: " + bus.BusType())
	}
	r.buses[bus.BusType()] = bus
}

// RegisterDriver adds a driver to the scoring pool.
func (r *Registry) RegisterDriver(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = append(r.drivers, d)
}

// BindDevice scores every registered driver of the given bus type
// against dev and binds the highest scorer (score > 0), recording a
// fresh Generation token for the binding.
func (r *Registry) BindDevice(busType, addr string, dev BusDevice) (DriverInstance, error) {
	r.mu.Lock()
	var best Driver
	bestScore := 0
	for _, d := range r.drivers {
		if d.BusType() != busType {
			continue
		}
		if s := d.Handles(dev); s > bestScore {
			best, bestScore = d, s
		}
	}
	r.mu.Unlock()

	if best == nil {
		return nil, fmt.Errorf("device: %w (bus %q addr %q)", ErrNoDriver, busType, addr)
	}
	inst, err := best.Bind(dev)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.bound[busType+":"+addr] = &boundDevice{driver: best, instance: inst, generation: NewGeneration()}
	r.mu.Unlock()
	return inst, nil
}

// Generation returns the Generation token recorded for a bound
// device.
func (r *Registry) Generation(busType, addr string) (Generation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bound[busType+":"+addr]
	if !ok {
		return Generation{}, false
	}
	return b.generation, true
}
