package kernel

import (
	"fmt"
	"time"

	"tifflin.dev/kernel/pkg/abi"
	"tifflin.dev/kernel/pkg/device"
	"tifflin.dev/kernel/pkg/frame"
	"tifflin.dev/kernel/pkg/irq"
	"tifflin.dev/kernel/pkg/klog"
	"tifflin.dev/kernel/pkg/kobject"
	"tifflin.dev/kernel/pkg/sched"
	"tifflin.dev/kernel/pkg/vfs"
	"tifflin.dev/kernel/pkg/vmem"
)

// Class-free syscall ids registered by Boot (spec.md §4.11: "ids below
// 0x1000: process/thread lifecycle ... logging").
const (
	SyscallLog        = uint64(1)
	SyscallExitThread = uint64(2)
	SyscallWait       = uint64(3)
)

// Kernel is the live, booted system: one value per simulated machine,
// aggregating every subsystem wired together the way arch::start
// hands off to each layer's init in sequence (spec.md §2).
type Kernel struct {
	Frames    *frame.Allocator
	Heap      *vmem.Heap
	PageCache *vmem.PageCache
	IRQ       *irq.Dispatcher
	Devices   *device.Registry
	Handles   *kobject.HandleTable
	BootThread *sched.Thread
	NodeCache *vfs.NodeCache
	Mounts    *vfs.MountTable
	Syscalls  *abi.Syscalls
}

// Boot sequences every subsystem into a running Kernel: physical
// frames, the heap and the page cache (L1/L2), interrupt dispatch and
// the device manager (L7/L8) and the process handle table (L3) are
// built first, then the boot thread (L4), then the VFS node cache and
// mount table (L9/L10), and finally syscall dispatch registration (L11).
func Boot(cfg *Config) (*Kernel, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	klog.Infof("booting: cmdline=%q totalFrames=%d", cfg.CommandLine, cfg.TotalFrames)

	k := &Kernel{
		Frames:    frame.NewAllocator(cfg.TotalFrames),
		Heap:      vmem.NewHeap(cfg.HeapSize),
		PageCache: vmem.NewPageCache(cfg.PageCacheCapacity),
		IRQ:       irq.NewDispatcher(),
		Devices:   device.NewRegistry(),
		Handles:   &kobject.HandleTable{},
	}

	k.BootThread = sched.New("boot")

	k.NodeCache = vfs.NewNodeCache()
	k.Mounts = vfs.NewMountTable(k.NodeCache)

	k.Syscalls = abi.NewSyscalls(k.Handles)
	k.registerClassFreeSyscalls()

	klog.Infof("boot complete")
	return k, nil
}

// registerClassFreeSyscalls binds the process/thread-lifecycle and
// logging syscalls every process gets for free (spec.md §4.11),
// mirroring the way Boot wires every other subsystem before any
// userspace code runs.
func (k *Kernel) registerClassFreeSyscalls() {
	k.Syscalls.RegisterClassFree(SyscallLog, func(self *sched.Thread, args []uint64) (uint64, error) {
		klog.For("userspace").Info(fmt.Sprintf("thread %d logged", self.ID()), "words", len(args))
		return 0, nil
	})

	k.Syscalls.RegisterClassFree(SyscallExitThread, func(self *sched.Thread, args []uint64) (uint64, error) {
		code := int32(0)
		if len(args) > 0 {
			code = int32(args[0])
		}
		self.Exit(code)
		return 0, nil
	})

	k.Syscalls.RegisterClassFree(SyscallWait, func(self *sched.Thread, args []uint64) (uint64, error) {
		return k.dispatchWait(self, args)
	})
}

// neverDeadline is the wait() syscall's "!0" sentinel (spec.md §5:
// "wait(items, deadline=0) is a non-blocking poll ... !0 means
// 'never'"): every bit set, the all-ones uint64.
const neverDeadline = ^uint64(0)

// dispatchWait decodes the wait() syscall's flat register layout
// (spec.md §4.7): args[0] is a deadline per spec.md §5's convention
// (0 is a non-blocking poll, neverDeadline blocks indefinitely,
// anything else is a deadline in Unix nanoseconds), args[1] is the
// pair count n, followed by n (handle, flags) pairs. The result is a
// bitmap with bit i set when item i became ready — a flat register
// ABI has no room for a richer per-item return, so callers needing
// more than 64 items must split the call (documented limitation, not
// expected to bind in practice).
func (k *Kernel) dispatchWait(self *sched.Thread, args []uint64) (uint64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("kernel: wait: too few arguments")
	}
	var deadline time.Time
	switch args[0] {
	case neverDeadline:
		// zero time.Time is pkg/future.Wait's own "block indefinitely"
		// sentinel; leave deadline at its zero value.
	case 0:
		deadline = time.Now()
	default:
		deadline = time.Unix(0, int64(args[0]))
	}
	n := int(args[1])
	if len(args) < 2+2*n {
		return 0, fmt.Errorf("kernel: wait: argument count mismatch for %d items", n)
	}

	handles := make([]kobject.Handle, n)
	flags := make([]uint32, n)
	for i := 0; i < n; i++ {
		handles[i] = kobject.Handle(args[2+2*i])
		flags[i] = uint32(args[2+2*i+1])
	}

	ready, _ := abi.WaitHandles(self, k.Handles, handles, flags, deadline)
	var bitmap uint64
	for i, r := range ready {
		if r != 0 && i < 64 {
			bitmap |= 1 << uint(i)
		}
	}
	return bitmap, nil
}
