package vmem

import "sync"

// BumpRegion is a monotonic allocator used for long-lived structures,
// such as the page cache's backing range (spec.md §4.3). It never
// frees.
type BumpRegion struct {
	mu       sync.Mutex
	total    int
	used     int
	pageSize int
	backing  []byte
}

// NewBumpRegion creates a region of totalPages pages of pageSize
// bytes each.
func NewBumpRegion(totalPages, pageSize int) *BumpRegion {
	return &BumpRegion{total: totalPages, pageSize: pageSize, backing: make([]byte, totalPages*pageSize)}
}

// Delegate hands out nPages worth of backing storage, advancing the
// bump pointer; reports false if the region is exhausted (spec.md
// §4.3: "delegate(n_pages) -> Option<*mut T>").
func (b *BumpRegion) Delegate(nPages int) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used+nPages > b.total {
		return nil, false
	}
	start := b.used * b.pageSize
	end := start + nPages*b.pageSize
	b.used += nPages
	return b.backing[start:end], true
}

// Remaining reports how many pages are still available.
func (b *BumpRegion) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total - b.used
}
