package main

import (
	"fmt"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"tifflin.dev/kernel/pkg/device"
	"tifflin.dev/kernel/pkg/vfs"
)

// memVolume is the simplest possible device.PhysicalVolume: a flat
// in-memory byte slice, standing in for a simulated block device the
// way the host simulation replaces every real driver with something a
// test can drive directly.
type memVolume struct {
	name  string
	bs    uint32
	bytes []byte
}

func newMemVolume(name string, blocks int, blockSize uint32) *memVolume {
	return &memVolume{name: name, bs: blockSize, bytes: make([]byte, blocks*int(blockSize))}
}

func (v *memVolume) Name() string      { return v.name }
func (v *memVolume) BlockSize() uint32 { return v.bs }
func (v *memVolume) Capacity() uint64  { return uint64(len(v.bytes)) }

func (v *memVolume) Read(_ device.IOPriority, startBlock uint64, numBlocks uint32, buf []byte) (int, error) {
	off := startBlock * uint64(v.bs)
	n := copy(buf, v.bytes[off:off+uint64(numBlocks)*uint64(v.bs)])
	return n, nil
}

func (v *memVolume) Write(_ device.IOPriority, startBlock uint64, numBlocks uint32, buf []byte) error {
	off := startBlock * uint64(v.bs)
	copy(v.bytes[off:off+uint64(numBlocks)*uint64(v.bs)], buf)
	return nil
}

func (v *memVolume) Wipe(startBlock uint64, numBlocks uint32) error {
	off := startBlock * uint64(v.bs)
	for i := uint64(0); i < uint64(numBlocks)*uint64(v.bs); i++ {
		v.bytes[off+i] = 0
	}
	return nil
}

// demoFS is a trivial single-mount in-memory filesystem: a root
// directory backed by vfs.LevelDirOps over an in-memory goleveldb
// instance, enough to exercise Mount/Resolve/OpenFile/OpenDir end to
// end without needing a real on-disk format.
type demoFS struct {
	db    *leveldb.DB
	vol   device.PhysicalVolume
	nodes map[vfs.InodeId]*vfs.VfsNodeInfo
	next  atomic.Uint64
}

func newDemoFS(vol device.PhysicalVolume) *demoFS {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic(fmt.Sprintf("kernelsim: opening in-memory leveldb: %v", err))
	}
	fs := &demoFS{db: db, vol: vol, nodes: make(map[vfs.InodeId]*vfs.VfsNodeInfo)}
	root := fs.newNode(vfs.KindDir)
	fs.nodes[root.Inode] = root
	return fs
}

func (fs *demoFS) allocInode() (vfs.InodeId, error) {
	return vfs.InodeId(fs.next.Add(1)), nil
}

func (fs *demoFS) newNode(kind vfs.NodeKind) *vfs.VfsNodeInfo {
	id, _ := fs.allocInode()
	n := &vfs.VfsNodeInfo{Mount: 0, Inode: id, Kind: kind, Lock: vfs.NewLockState()}
	if kind == vfs.KindDir {
		n.Dir = vfs.NewLevelDirOps(fs.db, 0, id, fs.allocInode)
	}
	return n
}

func (fs *demoFS) RootInode() vfs.InodeId { return 1 }

func (fs *demoFS) GetNodeByInode(id vfs.InodeId) (*vfs.VfsNodeInfo, error) {
	n, ok := fs.nodes[id]
	if !ok {
		return nil, vfs.ErrNotFound
	}
	return n, nil
}

func (fs *demoFS) CreateFile(parent vfs.InodeId, name string) (*vfs.VfsNodeInfo, error) {
	p, err := fs.GetNodeByInode(parent)
	if err != nil {
		return nil, err
	}
	id, err := p.Dir.Create(name, vfs.KindFile)
	if err != nil {
		return nil, err
	}
	n := &vfs.VfsNodeInfo{Mount: 0, Inode: id, Kind: vfs.KindFile, File: vfs.NewBufferedFile(fs.vol, 0), Lock: vfs.NewLockState()}
	fs.nodes[id] = n
	return n, nil
}

// demoFSDriver always claims whatever volume it's handed; a real
// driver would probe a superblock magic via Detect (spec.md §6).
type demoFSDriver struct {
	fs *demoFS
}

func (d *demoFSDriver) Name() string { return "demofs" }
func (d *demoFSDriver) Detect(device.PhysicalVolume) int { return 1 }
func (d *demoFSDriver) Mount(device.PhysicalVolume) (vfs.Filesystem, error) {
	return d.fs, nil
}
