package vfs

import "tifflin.dev/kernel/pkg/sched"

// FileHandle is a live open of a File-kind node under a particular
// OpenMode (spec.md §4.10). Close must be called exactly once.
type FileHandle struct {
	cache *CacheHandle
	mode  OpenMode
}

// OpenFile resolves path and attempts to open it under mode,
// returning ErrLocked if the node's current lock state is
// incompatible (spec.md §8 scenario 4) or ErrTypeMismatch if the
// resolved node is not a file.
func OpenFile(self *sched.Thread, table *MountTable, path Path, mode OpenMode) (*FileHandle, error) {
	h, err := table.Resolve(path)
	if err != nil {
		return nil, err
	}
	if h.Node.Kind != KindFile {
		h.Release()
		return nil, ErrTypeMismatch
	}
	if err := h.Node.Lock.TryOpen(self, mode); err != nil {
		h.Release()
		return nil, err
	}
	return &FileHandle{cache: h, mode: mode}, nil
}

// Node returns the underlying cached node.
func (h *FileHandle) Node() *VfsNodeInfo { return h.cache.Node }

// Close releases the open-mode lock and the cache reference.
func (h *FileHandle) Close(self *sched.Thread) {
	h.cache.Node.Lock.Close(self, h.mode)
	h.cache.Release()
}

// DirHandle is a live open of a Dir-kind node.
type DirHandle struct {
	cache *CacheHandle
}

// OpenDir resolves path and returns a directory handle, failing with
// ErrTypeMismatch if it does not name a directory.
func OpenDir(table *MountTable, path Path) (*DirHandle, error) {
	h, err := table.Resolve(path)
	if err != nil {
		return nil, err
	}
	if h.Node.Kind != KindDir {
		h.Release()
		return nil, ErrTypeMismatch
	}
	return &DirHandle{cache: h}, nil
}

// Node returns the underlying cached node.
func (h *DirHandle) Node() *VfsNodeInfo { return h.cache.Node }

// Close releases the cache reference.
func (h *DirHandle) Close() { h.cache.Release() }
