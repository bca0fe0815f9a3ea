package spinlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	var l Spinlock
	l.Lock(1)
	assert.True(t, l.HeldByCPU(1))
	assert.True(t, l.IsLocked())
	l.Unlock(1)
	assert.False(t, l.IsLocked())
}

func TestTryLockContended(t *testing.T) {
	var l Spinlock
	require.True(t, l.TryLock(1))
	assert.False(t, l.TryLock(2))
	l.Unlock(1)
	assert.True(t, l.TryLock(2))
}

func TestTryLockCPUReentrant(t *testing.T) {
	var l Spinlock
	require.True(t, l.TryLock(1))
	// Same CPU re-entering via the IRQ-safe path must not deadlock or
	// double-acquire; it must report false.
	assert.False(t, l.TryLockCPU(1))
	l.Unlock(1)
}

func TestUnlockWithoutHoldingPanics(t *testing.T) {
	var l Spinlock
	assert.Panics(t, func() { l.Unlock(1) })
}

func TestHeldInterruptsLIFO(t *testing.T) {
	resetForTest()
	cpu := CPUID(5)
	assert.True(t, InterruptsEnabled(cpu))

	outer := HoldInterrupts(cpu)
	assert.False(t, InterruptsEnabled(cpu))
	inner := HoldInterrupts(cpu)
	assert.False(t, InterruptsEnabled(cpu))

	inner.Release()
	assert.False(t, InterruptsEnabled(cpu), "outer token still held")
	outer.Release()
	assert.True(t, InterruptsEnabled(cpu))
}

func TestHeldInterruptsOutOfOrderPanics(t *testing.T) {
	resetForTest()
	cpu := CPUID(6)
	outer := HoldInterrupts(cpu)
	_ = HoldInterrupts(cpu)

	assert.Panics(t, func() { outer.Release() })
}

func TestHeldInterruptsDoubleReleasePanics(t *testing.T) {
	resetForTest()
	cpu := CPUID(7)
	tok := HoldInterrupts(cpu)
	tok.Release()
	assert.Panics(t, func() { tok.Release() })
}
