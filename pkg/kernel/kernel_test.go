package kernel

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifflin.dev/kernel/pkg/future"
	"tifflin.dev/kernel/pkg/kobject"
)

// fakeWaitObject signals as soon as it is bound, simulating a handle
// that is already ready.
type fakeWaitObject struct {
	class kobject.ClassID
}

func (o *fakeWaitObject) ClassID() kobject.ClassID { return o.class }
func (o *fakeWaitObject) HandleSyscallRef(method uint32, args []uint64) (uint64, error) {
	return 0, nil
}
func (o *fakeWaitObject) HandleSyscallVal(method uint32, args []uint64) (uint64, error) {
	return 0, nil
}
func (o *fakeWaitObject) BindWait(flags uint32, obj *future.SleepObject) bool {
	obj.Signal()
	return true
}
func (o *fakeWaitObject) ClearWait(flags uint32, obj *future.SleepObject) uint32 { return flags }
func (o *fakeWaitObject) TryClone() (kobject.Object, bool)                      { return nil, false }

// neverReadyObject accepts a bind but never signals, simulating a
// handle that stays not-ready for the life of the call.
type neverReadyObject struct {
	class kobject.ClassID
}

func (o *neverReadyObject) ClassID() kobject.ClassID { return o.class }
func (o *neverReadyObject) HandleSyscallRef(method uint32, args []uint64) (uint64, error) {
	return 0, nil
}
func (o *neverReadyObject) HandleSyscallVal(method uint32, args []uint64) (uint64, error) {
	return 0, nil
}
func (o *neverReadyObject) BindWait(flags uint32, obj *future.SleepObject) bool { return true }
func (o *neverReadyObject) ClearWait(flags uint32, obj *future.SleepObject) uint32 {
	return 0
}
func (o *neverReadyObject) TryClone() (kobject.Object, bool) { return nil, false }

// delayedWaitObject signals only after release is closed, simulating a
// handle that becomes ready some time after the wait() call began.
type delayedWaitObject struct {
	class   kobject.ClassID
	release chan struct{}
}

func (o *delayedWaitObject) ClassID() kobject.ClassID { return o.class }
func (o *delayedWaitObject) HandleSyscallRef(method uint32, args []uint64) (uint64, error) {
	return 0, nil
}
func (o *delayedWaitObject) HandleSyscallVal(method uint32, args []uint64) (uint64, error) {
	return 0, nil
}
func (o *delayedWaitObject) BindWait(flags uint32, obj *future.SleepObject) bool {
	go func() {
		<-o.release
		obj.Signal()
	}()
	return true
}
func (o *delayedWaitObject) ClearWait(flags uint32, obj *future.SleepObject) uint32 { return flags }
func (o *delayedWaitObject) TryClone() (kobject.Object, bool)                      { return nil, false }

func TestBootWiresEverySubsystem(t *testing.T) {
	k, err := Boot(DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, k.Frames)
	assert.NotNil(t, k.Heap)
	assert.NotNil(t, k.PageCache)
	assert.NotNil(t, k.IRQ)
	assert.NotNil(t, k.Devices)
	assert.NotNil(t, k.Handles)
	assert.NotNil(t, k.BootThread)
	assert.NotNil(t, k.NodeCache)
	assert.NotNil(t, k.Mounts)
	assert.NotNil(t, k.Syscalls)

	_, err = k.Frames.Alloc()
	require.NoError(t, err)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/kernel.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"commandLine": "quiet"}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "quiet", cfg.CommandLine)
	assert.Equal(t, uint64(1<<16), cfg.TotalFrames)
	assert.Equal(t, 256, cfg.PageCacheCapacity)
}

func TestExitThreadSyscallSetsExitCode(t *testing.T) {
	k, err := Boot(DefaultConfig())
	require.NoError(t, err)

	_, err = k.Syscalls.Dispatch(k.BootThread, SyscallExitThread, []uint64{7})
	require.NoError(t, err)
	assert.Equal(t, int32(7), k.BootThread.ExitCode())
}

func TestWaitSyscallDecodesHandlePairsAndReturnsBitmap(t *testing.T) {
	k, err := Boot(DefaultConfig())
	require.NoError(t, err)

	h, err := k.Handles.NewObject(&fakeWaitObject{class: 9})
	require.NoError(t, err)

	args := []uint64{neverDeadline, 1, uint64(h), 1}
	result, err := k.Syscalls.Dispatch(k.BootThread, SyscallWait, args)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result)
}

// TestWaitSyscallZeroDeadlineIsNonBlockingPoll pins down spec.md §5's
// literal convention at the syscall boundary: deadline 0 must return
// immediately against a handle that never becomes ready, not block.
func TestWaitSyscallZeroDeadlineIsNonBlockingPoll(t *testing.T) {
	k, err := Boot(DefaultConfig())
	require.NoError(t, err)

	h, err := k.Handles.NewObject(&neverReadyObject{class: 9})
	require.NoError(t, err)

	args := []uint64{0, 1, uint64(h), 1}
	start := time.Now()
	result, err := k.Syscalls.Dispatch(k.BootThread, SyscallWait, args)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

// TestWaitSyscallNeverDeadlineBlocksUntilSignalled confirms the
// neverDeadline sentinel actually blocks rather than returning early,
// the counterpart boundary to the non-blocking-poll test above.
func TestWaitSyscallNeverDeadlineBlocksUntilSignalled(t *testing.T) {
	k, err := Boot(DefaultConfig())
	require.NoError(t, err)

	release := make(chan struct{})
	h, err := k.Handles.NewObject(&delayedWaitObject{class: 9, release: release})
	require.NoError(t, err)

	resultCh := make(chan uint64, 1)
	go func() {
		args := []uint64{neverDeadline, 1, uint64(h), 1}
		result, dispatchErr := k.Syscalls.Dispatch(k.BootThread, SyscallWait, args)
		require.NoError(t, dispatchErr)
		resultCh <- result
	}()

	select {
	case <-resultCh:
		t.Fatal("wait() with neverDeadline returned before the handle was signalled")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case result := <-resultCh:
		assert.Equal(t, uint64(1), result)
	case <-time.After(time.Second):
		t.Fatal("wait() with neverDeadline did not unblock after the handle was signalled")
	}
}

func TestLogSyscallDoesNotError(t *testing.T) {
	k, err := Boot(DefaultConfig())
	require.NoError(t, err)

	_, err = k.Syscalls.Dispatch(k.BootThread, SyscallLog, []uint64{1, 2, 3})
	assert.NoError(t, err)
}
