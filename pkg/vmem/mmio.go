package vmem

import (
	"errors"
	"sync"
)

// Protection mirrors spec.md §3's MapRegion protection modes.
type Protection int

const (
	ProtRO Protection = iota
	ProtRW
	ProtRX
	ProtCOW
	ProtWriteBack
	ProtUser
	ProtKernel
)

// ErrRangeInUse is returned by MMIOMap.Map for an already-mapped
// physical range (spec.md §4.3's MapError::RangeInUse).
var ErrRangeInUse = errors.New("vmem: mmio range already mapped")

// MMIOMap acquires contiguous virtual ranges mapping physical regions
// with a specified protection (spec.md §4.3).
type MMIOMap struct {
	mu     sync.Mutex
	ranges map[uint64]*mmioMapping
}

type mmioMapping struct {
	phys uint64
	size uint64
	prot Protection
}

// NewMMIOMap creates an empty MMIO map.
func NewMMIOMap() *MMIOMap {
	return &MMIOMap{ranges: make(map[uint64]*mmioMapping)}
}

// MMIOHandle is returned by Map; its Unmap releases the mapping
// (spec.md §4.3: "returned via a handle whose drop unmaps").
type MMIOHandle struct {
	m    *MMIOMap
	phys uint64
}

// Map reserves a mapping of the physical range [phys, phys+size) with
// the given protection.
func (m *MMIOMap) Map(phys, size uint64, prot Protection) (*MMIOHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ranges[phys]; ok {
		return nil, ErrRangeInUse
	}
	m.ranges[phys] = &mmioMapping{phys: phys, size: size, prot: prot}
	return &MMIOHandle{m: m, phys: phys}, nil
}

// Unmap releases the mapping. Safe to call once; a second call is a
// no-op.
func (h *MMIOHandle) Unmap() {
	m := h.m
	if m == nil {
		return
	}
	h.m = nil
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ranges, h.phys)
}
