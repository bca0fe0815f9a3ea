package vfs

import (
	"sync"
	"sync/atomic"
)

type cacheKey struct {
	Mount MountId
	Inode InodeId
}

// CacheHandle is a refcounted reference into the node cache. Callers
// obtain one via NodeCache.Get and must call Release exactly once per
// Get/Clone.
type CacheHandle struct {
	cache *NodeCache
	key   cacheKey
	Node  *VfsNodeInfo
	refs  *atomic.Int64
}

// Clone bumps the refcount and returns a second independent handle to
// the same node.
func (h *CacheHandle) Clone() *CacheHandle {
	h.refs.Add(1)
	return &CacheHandle{cache: h.cache, key: h.key, Node: h.Node, refs: h.refs}
}

// Release drops one reference. When the count reaches zero the entry
// is evicted from the interner immediately — the core never retains
// cold nodes speculatively.
func (h *CacheHandle) Release() {
	if h.refs.Add(-1) == 0 {
		h.cache.evict(h.key)
	}
}

// NodeCache is the global interner from (MountId, InodeId) to a
// refcounted CacheHandle (spec.md §4.10), grounded on pkg/sorted/mem.go's
// mutex-guarded map shape generalized here to hold live, refcounted
// objects rather than byte strings. Locking discipline: the node-cache
// lock is always acquired before any per-node lock (spec.md §5).
type NodeCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*nodeCacheEntry
}

type nodeCacheEntry struct {
	node *VfsNodeInfo
	refs atomic.Int64
}

// NewNodeCache creates an empty interner.
func NewNodeCache() *NodeCache {
	return &NodeCache{entries: make(map[cacheKey]*nodeCacheEntry)}
}

// Get returns the cached handle for (mount, inode), creating it via
// load on a cache miss. load is called with the cache lock NOT held.
func (c *NodeCache) Get(mount MountId, inode InodeId, load func() (*VfsNodeInfo, error)) (*CacheHandle, error) {
	key := cacheKey{mount, inode}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.refs.Add(1)
		c.mu.Unlock()
		return &CacheHandle{cache: c, key: key, Node: e.node, refs: &e.refs}, nil
	}
	c.mu.Unlock()

	node, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		// Lost a race with another loader; keep theirs.
		e.refs.Add(1)
		return &CacheHandle{cache: c, key: key, Node: e.node, refs: &e.refs}, nil
	}
	e := &nodeCacheEntry{node: node}
	e.refs.Store(1)
	c.entries[key] = e
	return &CacheHandle{cache: c, key: key, Node: e.node, refs: &e.refs}, nil
}

func (c *NodeCache) evict(key cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.refs.Load() == 0 {
		delete(c.entries, key)
	}
}

// Len reports the number of distinct nodes currently interned.
func (c *NodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
