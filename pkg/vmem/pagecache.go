package vmem

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"tifflin.dev/kernel/pkg/frame"
)

// PageKey identifies a cached page by file identity and offset
// (spec.md §3's PageCacheSlot: "a mapping of (file-identity, offset)
// -> PhysicalFrame").
type PageKey struct {
	FileID uint64
	Offset uint64
}

type pageEntry struct {
	key     PageKey
	slot    int
	frame   frame.Index
	pinned  int
	visited atomic.Bool
}

// PageCache is the global page cache: bounded to MAX_ENTS slots of
// one page each, with a counting semaphore gating slot acquisition
// (spec.md §4.3) and SIEVE-style eviction once full (adapted from
// internal/sieve/sieve.go's visited-bit/hand-pointer scan — chosen
// per DESIGN.md as the work-conserving policy spec.md §9 leaves
// unspecified, as long as `held_by_map` pins are respected).
type PageCache struct {
	mu        sync.Mutex
	sem       *semaphore.Weighted
	maxEnts   int
	byKey     map[PageKey]*pageEntry
	order     []*pageEntry
	hand      int
	freeSlots []int
	nextSlot  int
}

// NewPageCache creates a cache bounded to maxEnts slots.
func NewPageCache(maxEnts int) *PageCache {
	return &PageCache{
		sem:     semaphore.NewWeighted(int64(maxEnts)),
		maxEnts: maxEnts,
		byKey:   make(map[PageKey]*pageEntry),
	}
}

// CachedPage is the handle returned by Map; its Release unpins the page,
// making its slot eligible for eviction. The slot stays occupied until a
// later Map evicts it.
type CachedPage struct {
	pc  *PageCache
	key PageKey
}

// Slot returns the physical slot index backing this page, stable
// across Map calls for the same key until eviction (spec.md §8
// scenario 6 exercises this).
func (c *CachedPage) Slot() int {
	c.pc.mu.Lock()
	defer c.pc.mu.Unlock()
	return c.pc.byKey[c.key].slot
}

// Frame returns the physical frame backing this page.
func (c *CachedPage) Frame() frame.Index {
	c.pc.mu.Lock()
	defer c.pc.mu.Unlock()
	return c.pc.byKey[c.key].frame
}

// Release unpins the page; it remains cached (and eligible for SIEVE
// eviction under pressure) until another Map call reclaims its slot.
func (c *CachedPage) Release() {
	c.pc.mu.Lock()
	defer c.pc.mu.Unlock()
	if e, ok := c.pc.byKey[c.key]; ok && e.pinned > 0 {
		e.pinned--
	}
}

// Map maps the page identified by key, calling newFrame to obtain a
// backing frame only on a cache miss (spec.md §4.3). It blocks if the
// cache is full and nothing is evictable.
func (pc *PageCache) Map(ctx context.Context, key PageKey, newFrame func() frame.Index) (*CachedPage, error) {
	for {
		pc.mu.Lock()
		if e, ok := pc.byKey[key]; ok {
			e.pinned++
			e.visited.Store(true)
			pc.mu.Unlock()
			return &CachedPage{pc: pc, key: key}, nil
		}
		pc.mu.Unlock()

		if pc.sem.TryAcquire(1) {
			break
		}
		if pc.evictOne() {
			continue
		}
		if err := pc.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		break
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if e, ok := pc.byKey[key]; ok {
		// Lost the race: someone else populated this key while we
		// waited for a slot. Give our redundant unit back.
		e.pinned++
		e.visited.Store(true)
		pc.sem.Release(1)
		return &CachedPage{pc: pc, key: key}, nil
	}

	slot := pc.allocSlotLocked()
	e := &pageEntry{key: key, slot: slot, frame: newFrame(), pinned: 1}
	e.visited.Store(true)
	pc.byKey[key] = e
	pc.order = append(pc.order, e)
	return &CachedPage{pc: pc, key: key}, nil
}

func (pc *PageCache) allocSlotLocked() int {
	if n := len(pc.freeSlots); n > 0 {
		s := pc.freeSlots[n-1]
		pc.freeSlots = pc.freeSlots[:n-1]
		return s
	}
	s := pc.nextSlot
	pc.nextSlot++
	return s
}

// evictOne runs one SIEVE scan: unpinned+visited entries get a second
// chance (visited cleared, hand advances); the first unpinned+
// unvisited entry found is evicted. Returns false if every entry is
// currently pinned.
func (pc *PageCache) evictOne() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	n := len(pc.order)
	if n == 0 {
		return false
	}
	for i := 0; i < 2*n; i++ {
		idx := pc.hand % len(pc.order)
		e := pc.order[idx]

		if e.pinned > 0 {
			pc.hand = (idx + 1) % len(pc.order)
			continue
		}
		if e.visited.CompareAndSwap(true, false) {
			pc.hand = (idx + 1) % len(pc.order)
			continue
		}

		pc.order = append(pc.order[:idx], pc.order[idx+1:]...)
		delete(pc.byKey, e.key)
		pc.freeSlots = append(pc.freeSlots, e.slot)
		if len(pc.order) > 0 {
			pc.hand = idx % len(pc.order)
		} else {
			pc.hand = 0
		}
		pc.sem.Release(1)
		return true
	}
	return false
}

// Len reports the number of currently cached (pinned or unpinned)
// pages.
func (pc *PageCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.byKey)
}
