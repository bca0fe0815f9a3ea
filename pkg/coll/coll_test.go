package coll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseVecWrap(t *testing.T) {
	var sv SparseVec[string]
	var handles []int
	for i := 0; i < 5; i++ {
		handles = append(handles, sv.Insert("v"))
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, handles)

	// Scenario 1 (spec.md §8): dropping slot 0 and allocating again
	// returns a handle whose low bits equal 0 (here: the literal index).
	v, ok := sv.Remove(0)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	idx := sv.Insert("w")
	assert.Equal(t, 0, idx)
	assert.Equal(t, 5, sv.Cap())
	assert.Equal(t, 5, sv.Len())
}

func TestSparseVecGetMissing(t *testing.T) {
	var sv SparseVec[int]
	_, ok := sv.Get(3)
	assert.False(t, ok)
	idx := sv.Insert(42)
	sv.Remove(idx)
	_, ok = sv.Get(idx)
	assert.False(t, ok)
}

func TestVecMapOrdering(t *testing.T) {
	var m VecMap[int, string]
	m.Insert(5, "five")
	m.Insert(1, "one")
	m.Insert(3, "three")
	assert.Equal(t, []int{1, 3, 5}, m.Keys())

	v, ok := m.Get(3)
	require.True(t, ok)
	assert.Equal(t, "three", v)

	_, ok = m.Remove(3)
	require.True(t, ok)
	_, ok = m.Get(3)
	assert.False(t, ok)
}

func TestBTreeMapRange(t *testing.T) {
	var tr BTreeMap[string, int]
	for i, k := range []string{"a", "c", "e", "g"} {
		tr.Set(k, i)
	}
	it := tr.Find("b", "g", true)
	var got []string
	for it.Next() {
		got = append(got, it.Key())
	}
	assert.Equal(t, []string{"c", "e"}, got)

	it = tr.Find("c", "", false)
	got = nil
	for it.Next() {
		got = append(got, it.Key())
	}
	assert.Equal(t, []string{"c", "e", "g"}, got)
}

func TestVecDequeFIFOandLIFO(t *testing.T) {
	var d VecDeque[int]
	for i := 0; i < 20; i++ {
		d.PushBack(i)
	}
	assert.Equal(t, 20, d.Len())
	for i := 0; i < 20; i++ {
		v, ok := d.PopFront()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := d.PopFront()
	assert.False(t, ok)

	d.PushFront(1)
	d.PushFront(2)
	v, _ := d.PopFront()
	assert.Equal(t, 2, v)
}

func TestVecDequeRemove(t *testing.T) {
	var d VecDeque[int]
	d.PushBack(1)
	d.PushBack(2)
	d.PushBack(3)
	v, ok := d.Remove(func(x int) bool { return x == 2 })
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, d.Len())
	front, _ := d.PopFront()
	assert.Equal(t, 1, front)
}

func TestQueueDrain(t *testing.T) {
	var q Queue[int]
	q.Push(1)
	q.Push(2)
	q.Push(3)
	var seen []int
	q.Drain(func(v int) { seen = append(seen, v) })
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 0, q.Len())
}

func TestArefBorrowInvariant(t *testing.T) {
	a := NewAref(42)
	b := a.Borrow()
	assert.Equal(t, 42, b.Get())
	assert.Panics(t, func() { a.Drop() }, "must not drop with outstanding borrows")
	b.Release()
	assert.NotPanics(t, func() { a.Drop() })
}

func TestArefDoubleDropPanics(t *testing.T) {
	a := NewAref("x")
	a.Drop()
	assert.Panics(t, func() { a.Drop() })
}

func TestRcCloneDrop(t *testing.T) {
	r := NewRc(7)
	r2 := r.Clone()
	assert.Equal(t, 7, *r2.Get())
	assert.Equal(t, int64(1), r.Drop())
	assert.Equal(t, int64(0), r2.Drop())
}

func TestByteorderRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	PutLEUint64(buf, 0x0102030405060708)
	assert.Equal(t, uint64(0x0102030405060708), LEUint64(buf))
	PutBEUint32(buf, 0xAABBCCDD)
	assert.Equal(t, uint32(0xAABBCCDD), BEUint32(buf))
}
