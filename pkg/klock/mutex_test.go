package klock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifflin.dev/kernel/pkg/sched"
)

func TestMutexLockUnlock(t *testing.T) {
	m := NewMutex(0)
	self := sched.New("t0")

	g := m.Lock(self)
	*g.Get() = 42
	g.Unlock()

	g2, ok := m.TryLock(self)
	require.True(t, ok)
	assert.Equal(t, 42, *g2.Get())
	g2.Unlock()
}

func TestMutexTryLockContended(t *testing.T) {
	m := NewMutex(0)
	a := sched.New("a")
	b := sched.New("b")

	g := m.Lock(a)
	_, ok := m.TryLock(b)
	assert.False(t, ok)
	g.Unlock()
}

// TestMutexHandoffOrder reimplements spec.md §8 scenario 2 at the
// klock.Mutex level: thread A holds M, thread B calls M.Lock and
// blocks, A calls M.Unlock, B immediately proceeds, and C calling
// M.Lock blocks in turn. Observed order is A->B->C.
func TestMutexHandoffOrder(t *testing.T) {
	m := NewMutex(0)
	var order []string
	done := make(chan struct{}, 3)

	a := sched.New("A")
	b := sched.New("B")
	c := sched.New("C")

	ga := m.Lock(a)
	order = append(order, "A")

	sched.Spawn("B", func(self *sched.Thread) {
		gb := m.Lock(b)
		order = append(order, "B")
		time.Sleep(10 * time.Millisecond)
		gb.Unlock()
		done <- struct{}{}
	})
	sched.Spawn("C", func(self *sched.Thread) {
		time.Sleep(5 * time.Millisecond)
		gc := m.Lock(c)
		order = append(order, "C")
		gc.Unlock()
		done <- struct{}{}
	})

	time.Sleep(20 * time.Millisecond)
	ga.Unlock()

	<-done
	<-done

	require.Equal(t, []string{"A", "B", "C"}, order)
}

func TestLazyMutexInitOnce(t *testing.T) {
	var l LazyMutex[int]
	self := sched.New("t0")

	calls := 0
	g1, v1 := l.LockInit(self, func() int { calls++; return 7 })
	assert.Equal(t, 7, *v1)
	g1.Unlock()

	g2, v2 := l.LockInit(self, func() int { calls++; return 99 })
	assert.Equal(t, 7, *v2)
	g2.Unlock()

	assert.Equal(t, 1, calls)
}
