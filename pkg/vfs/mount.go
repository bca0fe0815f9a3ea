package vfs

import (
	"strings"
	"sync"
	"sync/atomic"

	"tifflin.dev/kernel/pkg/device"
)

// maxSymlinkDepth bounds symlink chain resolution (spec.md §8
// scenario 5: a chain of depth 41 must return
// ErrRecursionDepthExceeded), matching the conventional Unix
// MAXSYMLINKS limit.
const maxSymlinkDepth = 40

// Filesystem is what a mounted driver instance exposes once mounted
// (spec.md §6): a root inode plus inode-to-node resolution.
type Filesystem interface {
	RootInode() InodeId
	GetNodeByInode(id InodeId) (*VfsNodeInfo, error)
}

// FilesystemDriver is what a filesystem crate registers via
// register_fs (spec.md §6).
type FilesystemDriver interface {
	Name() string
	Detect(vol device.PhysicalVolume) int
	Mount(vol device.PhysicalVolume) (Filesystem, error)
}

// Mount binds a Path to a VolumeHandle + FilesystemDriver (spec.md
// §3) and owns the root node's cache entry.
type Mount struct {
	ID     MountId
	Path   Path
	FS     Filesystem
	Volume device.PhysicalVolume
	root   *CacheHandle
}

// MountTable is the global mount point registry plus the filesystem
// driver registry (spec.md §6's register_fs), grounded on
// pkg/blobserver/registry.go's register-then-look-up-by-name pattern
// generalized here into register-then-score-by-Detect, mirroring
// pkg/device.Registry's driver-scoring shape for the analogous §4.9
// bus/device binding.
type MountTable struct {
	mu      sync.Mutex
	cache   *NodeCache
	drivers map[string]FilesystemDriver
	byPath  map[Path]*Mount
	nextID  atomic.Uint32
}

// NewMountTable creates an empty table backed by cache.
func NewMountTable(cache *NodeCache) *MountTable {
	return &MountTable{
		cache:   cache,
		drivers: make(map[string]FilesystemDriver),
		byPath:  make(map[Path]*Mount),
	}
}

// RegisterFS adds a filesystem driver, panicking on a duplicate name.
func (t *MountTable) RegisterFS(driver FilesystemDriver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.drivers[driver.Name()]; ok {
		panic("vfs: filesystem driver already registered: " + driver.Name())
	}
	t.drivers[driver.Name()] = driver
}

// Mount detects the best-scoring registered driver for vol and binds
// it at path.
func (t *MountTable) Mount(path Path, vol device.PhysicalVolume) (*Mount, error) {
	t.mu.Lock()
	var best FilesystemDriver
	bestScore := 0
	for _, d := range t.drivers {
		if s := d.Detect(vol); s > bestScore {
			best, bestScore = d, s
		}
	}
	t.mu.Unlock()

	if best == nil {
		return nil, ErrInconsistentFilesystem
	}

	fs, err := best.Mount(vol)
	if err != nil {
		return nil, err
	}

	id := MountId(t.nextID.Add(1))
	root, err := t.cache.Get(id, fs.RootInode(), func() (*VfsNodeInfo, error) {
		return fs.GetNodeByInode(fs.RootInode())
	})
	if err != nil {
		return nil, err
	}

	m := &Mount{ID: id, Path: path, FS: fs, Volume: vol, root: root}
	t.mu.Lock()
	t.byPath[path] = m
	t.mu.Unlock()
	return m, nil
}

// Unmount releases a previously-mounted filesystem's root reference.
func (t *MountTable) Unmount(path Path) {
	t.mu.Lock()
	m, ok := t.byPath[path]
	if ok {
		delete(t.byPath, path)
	}
	t.mu.Unlock()
	if ok {
		m.root.Release()
	}
}

// ownerMount finds the longest registered mount path that is a prefix
// of full, returning the mount and the path remaining below it.
func (t *MountTable) ownerMount(full Path) (*Mount, Path) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *Mount
	bestLen := -1
	for p, m := range t.byPath {
		ps := string(p)
		fs := string(full)
		if ps == "/" {
			if bestLen < 0 {
				best, bestLen = m, 0
			}
			continue
		}
		if fs == ps || strings.HasPrefix(fs, ps+"/") {
			if len(ps) > bestLen {
				best, bestLen = m, len(ps)
			}
		}
	}
	if best == nil {
		return nil, ""
	}
	rel := strings.TrimPrefix(string(full), string(best.Path))
	rel = "/" + strings.TrimPrefix(rel, "/")
	return best, Path(rel)
}

// Resolve walks full from its owning mount's root, resolving symlinks
// with a recursion-depth cap and rejecting non-directory intermediate
// components (spec.md §4.10). The returned handle must be released by
// the caller.
func (t *MountTable) Resolve(full Path) (*CacheHandle, error) {
	mount, rel := t.ownerMount(full)
	if mount == nil {
		return nil, ErrNotFound
	}
	return t.walk(mount, rel.Iter())
}

func (t *MountTable) walk(mount *Mount, components []string) (*CacheHandle, error) {
	cur := mount.root.Clone()
	depth := 0
	i := 0
	for i < len(components) {
		name := components[i]
		if cur.Node.Kind != KindDir {
			cur.Release()
			return nil, ErrNonDirComponent
		}

		childID, err := cur.Node.Dir.Lookup(name)
		if err != nil {
			cur.Release()
			return nil, err
		}
		child, err := t.cache.Get(mount.ID, childID, func() (*VfsNodeInfo, error) {
			return mount.FS.GetNodeByInode(childID)
		})
		cur.Release()
		if err != nil {
			return nil, err
		}
		cur = child
		i++

		if cur.Node.Kind == KindSymlink {
			depth++
			if depth > maxSymlinkDepth {
				cur.Release()
				return nil, ErrRecursionDepthExceeded
			}
			target, err := cur.Node.Symlink.Target()
			cur.Release()
			if err != nil {
				return nil, err
			}
			targetPath, err := Normalise(target)
			if err != nil {
				return nil, ErrMalformedPath
			}
			components = append(append([]string{}, targetPath.Iter()...), components[i:]...)
			i = 0
			cur = mount.root.Clone()
		}
	}
	return cur, nil
}
