// Package vfs implements the kernel's VFS node cache and handle/mount
// layer (spec.md §4.10, components L9+L10): node identity and
// reference discipline, open-mode locking, path resolution, and the
// file/dir/symlink method surfaces mounts expose to syscalls.
//
// Grounded on the teacher's pkg/fs (a bazil.org/fuse filesystem):
// VfsNodeInfo's File/Dir/Symlink/Special split mirrors fuse.Node's
// Attr/Dirent vocabulary, and FilesystemDriver.Mount returning a root
// inode plus a get-node-by-id lookup is the same shape as pkg/fs's
// CamliFileSystem.Root() handed to bazil/fuse's serve loop. The
// Storage-capability-interface style of pkg/blobserver/interface.go
// (small single-method interfaces composed into Storage) is mirrored
// here by FileOps/DirOps/SymlinkOps/SpecialOps.
package vfs

import "bazil.org/fuse"

// MountId identifies one mounted filesystem instance.
type MountId uint32

// InodeId is unique within one mount (spec.md GLOSSARY).
type InodeId uint64

// NodeKind tags which of File/Dir/Symlink/Special a VfsNodeInfo is,
// replacing the source's deep NodeBase trait hierarchy with a flat
// tagged variant (spec.md §9 REDESIGN FLAGS).
type NodeKind int

const (
	KindFile NodeKind = iota
	KindDir
	KindSymlink
	KindSpecial
)

func (k NodeKind) fuseType() fuse.DirentType {
	switch k {
	case KindDir:
		return fuse.DT_Dir
	case KindSymlink:
		return fuse.DT_Link
	default:
		return fuse.DT_File
	}
}

// FileOps is the method surface a filesystem driver supplies for a
// File-kind node (spec.md §4.10).
type FileOps interface {
	Size() (uint64, error)
	Truncate(newSize uint64) (uint64, error)
	Clear(ofs, length uint64) error
	Read(ofs uint64, buf []byte) (int, error)
	Write(ofs uint64, buf []byte) (int, error)
	Append(data []byte) (int, error)
}

// DirOps is the method surface for a Dir-kind node.
type DirOps interface {
	Lookup(name string) (InodeId, error)
	Read(startOfs uint64, cb func(name string, id InodeId, kind NodeKind) bool) (nextOfs uint64, err error)
	Create(name string, kind NodeKind) (InodeId, error)
	Link(name string, node InodeId) error
	Unlink(name string) error
}

// SymlinkOps is the method surface for a Symlink-kind node.
type SymlinkOps interface {
	Target() (string, error)
}

// SpecialOps is the method surface for device/fifo/socket nodes; the
// core only needs to describe them, never interpret their contents.
type SpecialOps interface {
	Describe() string
}

// VfsNodeInfo is the cached, in-memory representation of an on-disk
// node (spec.md §3): a shared header (MountId, InodeId) carrying
// exactly one of File/Dir/Symlink/Special.
type VfsNodeInfo struct {
	Mount MountId
	Inode InodeId
	Kind  NodeKind

	File    FileOps
	Dir     DirOps
	Symlink SymlinkOps
	Special SpecialOps

	Lock LockState
}

// Attr renders the node's bazil/fuse attribute view. Nothing in this
// module serves it over FUSE; cmd/kernelsim has no FUSE front-end.
func (n *VfsNodeInfo) Attr() fuse.Attr {
	a := fuse.Attr{Inode: uint64(n.Inode)}
	switch n.Kind {
	case KindDir:
		a.Mode = 0o755
	case KindSymlink:
		a.Mode = 0o777
	default:
		a.Mode = 0o644
		if n.File != nil {
			if sz, err := n.File.Size(); err == nil {
				a.Size = sz
			}
		}
	}
	return a
}

// Dirent renders a directory entry for this node under the given name.
func (n *VfsNodeInfo) Dirent(name string) fuse.Dirent {
	return fuse.Dirent{Inode: uint64(n.Inode), Name: name, Type: n.Kind.fuseType()}
}
