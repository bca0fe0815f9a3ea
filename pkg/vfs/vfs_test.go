package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"tifflin.dev/kernel/pkg/device"
	"tifflin.dev/kernel/pkg/sched"
)

// memVolume is a trivial in-memory device.PhysicalVolume for tests.
type memVolume struct {
	blockSize uint32
	blocks    map[uint64][]byte
}

func newMemVolume(blockSize uint32) *memVolume {
	return &memVolume{blockSize: blockSize, blocks: make(map[uint64][]byte)}
}

func (v *memVolume) Name() string        { return "memvol" }
func (v *memVolume) BlockSize() uint32   { return v.blockSize }
func (v *memVolume) Capacity() uint64    { return 1 << 20 }
func (v *memVolume) Read(prio device.IOPriority, start uint64, num uint32, buf []byte) (int, error) {
	for i := uint32(0); i < num; i++ {
		b, ok := v.blocks[start+uint64(i)]
		dst := buf[int(i)*int(v.blockSize) : int(i+1)*int(v.blockSize)]
		if ok {
			copy(dst, b)
		}
	}
	return len(buf), nil
}
func (v *memVolume) Write(prio device.IOPriority, start uint64, num uint32, buf []byte) error {
	for i := uint32(0); i < num; i++ {
		block := make([]byte, v.blockSize)
		copy(block, buf[int(i)*int(v.blockSize):int(i+1)*int(v.blockSize)])
		v.blocks[start+uint64(i)] = block
	}
	return nil
}
func (v *memVolume) Wipe(start uint64, num uint32) error {
	for i := uint32(0); i < num; i++ {
		delete(v.blocks, start+uint64(i))
	}
	return nil
}

// testFS is a minimal in-memory Filesystem/FilesystemDriver pair
// backing an ordered directory index on an in-memory goleveldb
// instance, used to exercise mount/resolve/open without a real block
// driver.
type testFS struct {
	db      *leveldb.DB
	mount   MountId
	nodes   map[InodeId]*VfsNodeInfo
	nextIno uint64
}

func newTestFS() *testFS {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic(err)
	}
	return &testFS{db: db, nodes: make(map[InodeId]*VfsNodeInfo), nextIno: 1}
}

func (fs *testFS) allocInode() (InodeId, error) {
	id := InodeId(fs.nextIno)
	fs.nextIno++
	return id, nil
}

func (fs *testFS) mkdir(parent InodeId) InodeId {
	id, _ := fs.allocInode()
	dir := &VfsNodeInfo{Mount: fs.mount, Inode: id, Kind: KindDir}
	dir.Dir = NewLevelDirOps(fs.db, fs.mount, id, fs.allocInode)
	fs.nodes[id] = dir
	return id
}

func (fs *testFS) mkfile(parent InodeId, name string) InodeId {
	parentDir := fs.nodes[parent]
	id, err := parentDir.Dir.Create(name, KindFile)
	if err != nil {
		panic(err)
	}
	f := &VfsNodeInfo{Mount: fs.mount, Inode: id, Kind: KindFile, Lock: NewLockState()}
	f.File = NewBufferedFile(newMemVolume(512), 0)
	fs.nodes[id] = f
	return id
}

func (fs *testFS) mksubdir(parent InodeId, name string) InodeId {
	parentDir := fs.nodes[parent]
	id, err := parentDir.Dir.Create(name, KindDir)
	if err != nil {
		panic(err)
	}
	dir := &VfsNodeInfo{Mount: fs.mount, Inode: id, Kind: KindDir}
	dir.Dir = NewLevelDirOps(fs.db, fs.mount, id, fs.allocInode)
	fs.nodes[id] = dir
	return id
}

func (fs *testFS) symlink(parent InodeId, name, target string) InodeId {
	parentDir := fs.nodes[parent]
	id, err := parentDir.Dir.Create(name, KindSymlink)
	if err != nil {
		panic(err)
	}
	fs.nodes[id] = &VfsNodeInfo{Mount: fs.mount, Inode: id, Kind: KindSymlink, Symlink: staticSymlink(target)}
	return id
}

type staticSymlink string

func (s staticSymlink) Target() (string, error) { return string(s), nil }

func (fs *testFS) RootInode() InodeId { return 1 }
func (fs *testFS) GetNodeByInode(id InodeId) (*VfsNodeInfo, error) {
	n, ok := fs.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

type testFSDriver struct{ fs *testFS }

func (d *testFSDriver) Name() string                                { return "testfs" }
func (d *testFSDriver) Detect(vol device.PhysicalVolume) int        { return 1 }
func (d *testFSDriver) Mount(vol device.PhysicalVolume) (Filesystem, error) { return d.fs, nil }

func mountTestFS(t *testing.T) (*MountTable, *testFS) {
	t.Helper()
	fs := newTestFS()
	fs.mount = 1
	root := fs.mkdir(0)
	require.Equal(t, InodeId(1), root)

	cache := NewNodeCache()
	table := NewMountTable(cache)
	table.RegisterFS(&testFSDriver{fs: fs})
	_, err := table.Mount("/", newMemVolume(512))
	require.NoError(t, err)
	return table, fs
}

func TestPathNormaliseRoundTrip(t *testing.T) {
	cases := []string{"/a/b/c", "/a/../b/./c", "/", "/a//b///c", "/./a/./b"}
	for _, c := range cases {
		norm, err := Normalise(c)
		require.NoError(t, err)
		rejoined := "/" + joinSlash(norm.Iter())
		if norm == "/" {
			rejoined = "/"
		}
		assert.Equal(t, string(norm), rejoined)
	}
}

func joinSlash(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

func TestPathTraversalResolvesDotDot(t *testing.T) {
	table, fs := mountTestFS(t)
	b := fs.mksubdir(1, "b")
	fs.mksubdir(b, "c")

	norm, err := Normalise("/a/../b/./c")
	require.NoError(t, err)
	assert.Equal(t, Path("/b/c"), norm)

	h, err := table.Resolve(norm)
	require.NoError(t, err)
	defer h.Release()
	assert.Equal(t, KindDir, h.Node.Kind)
}

func TestSymlinkChainExceedsRecursionDepth(t *testing.T) {
	table, fs := mountTestFS(t)

	// Build a chain of 41 symlinks: link0 -> link1 -> ... -> link40 -> a real dir.
	target := fs.mksubdir(1, "real")
	_ = target
	prevName := "real"
	for i := 40; i >= 0; i-- {
		name := "link" + itoa(i)
		fs.symlink(1, name, "/"+prevName)
		prevName = name
	}

	_, err := table.Resolve(Path("/link0"))
	assert.ErrorIs(t, err, ErrRecursionDepthExceeded)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestNonDirComponentRejected(t *testing.T) {
	table, fs := mountTestFS(t)
	fs.mkfile(1, "leaf")

	_, err := table.Resolve(Path("/leaf/whatever"))
	assert.ErrorIs(t, err, ErrNonDirComponent)
}

// TestFileLockingConflict reimplements spec.md §8 scenario 4: two
// SharedRO opens succeed, a third ExclRW open is rejected, and once
// both readers close, ExclRW succeeds.
func TestFileLockingConflict(t *testing.T) {
	table, fs := mountTestFS(t)
	fs.mkfile(1, "x")
	self := sched.New("t")

	r1, err := OpenFile(self, table, Path("/x"), SharedRO)
	require.NoError(t, err)
	r2, err := OpenFile(self, table, Path("/x"), SharedRO)
	require.NoError(t, err)

	_, err = OpenFile(self, table, Path("/x"), ExclRW)
	assert.ErrorIs(t, err, ErrLocked)

	r1.Close(self)
	r2.Close(self)

	w, err := OpenFile(self, table, Path("/x"), ExclRW)
	require.NoError(t, err)
	w.Close(self)
}

func TestDirReadOrdersEntriesAndSupportsCursor(t *testing.T) {
	table, fs := mountTestFS(t)
	fs.mkfile(1, "b")
	fs.mkfile(1, "a")
	fs.mkfile(1, "c")

	dh, err := OpenDir(table, Path("/"))
	require.NoError(t, err)
	defer dh.Close()

	var names []string
	var ofs uint64
	for {
		next, err := dh.Node().Dir.Read(ofs, func(name string, id InodeId, kind NodeKind) bool {
			names = append(names, name)
			return len(names) < 2 // stop after 2 to exercise the cursor
		})
		require.NoError(t, err)
		if next == ofs {
			break
		}
		ofs = next
		if len(names) >= 3 {
			break
		}
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, []string{"a", "b", "c"}, names) // goleveldb iterates in key order
}

func TestBufferedFileReadWriteAcrossBlocks(t *testing.T) {
	vol := newMemVolume(16)
	f := NewBufferedFile(vol, 0)

	n, err := f.Write(10, []byte("hello world!!!!!"))
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	buf := make([]byte, 16)
	n, err = f.Read(10, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world!!!!!", string(buf[:n]))

	sz, _ := f.Size()
	assert.Equal(t, uint64(26), sz)
}

func TestBufferedFileAppendSerialisesOffsets(t *testing.T) {
	vol := newMemVolume(8)
	f := NewBufferedFile(vol, 0)

	_, err := f.Append([]byte("abc"))
	require.NoError(t, err)
	_, err = f.Append([]byte("def"))
	require.NoError(t, err)

	sz, _ := f.Size()
	assert.Equal(t, uint64(6), sz)
	buf := make([]byte, 6)
	f.Read(0, buf)
	assert.Equal(t, "abcdef", string(buf))
}
