package vmem

import "tifflin.dev/kernel/pkg/frame"

// PhysRange is one contiguous run yielded by DMABuffer.PhysRanges.
type PhysRange struct {
	Addr uint64
	Len  uint64
}

// DMABuffer verifies that every physical frame backing a user slice
// fits within a device's addressable bit-width limit (e.g. 32-bit
// DMA); if not, it allocates a bounce buffer (spec.md §4.3).
type DMABuffer struct {
	ranges []PhysRange
	bounce []byte
}

// NewDMABuffer inspects the frames backing a user range. maxBits
// bounds the physical address width the target device can DMA to.
func NewDMABuffer(frames []frame.Index, maxBits uint) *DMABuffer {
	limit := uint64(1) << maxBits
	fits := true
	for _, f := range frames {
		if uint64(f)*frame.PageSize+frame.PageSize > limit {
			fits = false
			break
		}
	}
	if fits {
		return &DMABuffer{ranges: coalesce(frames)}
	}

	bounce := make([]byte, len(frames)*frame.PageSize)
	return &DMABuffer{
		ranges: []PhysRange{{Addr: 0, Len: uint64(len(bounce))}},
		bounce: bounce,
	}
}

func coalesce(frames []frame.Index) []PhysRange {
	if len(frames) == 0 {
		return nil
	}
	var out []PhysRange
	start := frames[0]
	run := uint64(1)
	for i := 1; i < len(frames); i++ {
		if frames[i] == start+frame.Index(run) {
			run++
			continue
		}
		out = append(out, PhysRange{Addr: uint64(start) * frame.PageSize, Len: run * frame.PageSize})
		start = frames[i]
		run = 1
	}
	out = append(out, PhysRange{Addr: uint64(start) * frame.PageSize, Len: run * frame.PageSize})
	return out
}

// PhysRanges yields contiguous (addr, len) runs covering the buffer.
func (d *DMABuffer) PhysRanges() []PhysRange { return d.ranges }

// Bounced reports whether a bounce buffer was required.
func (d *DMABuffer) Bounced() bool { return d.bounce != nil }

// Bytes returns the bounce buffer backing store, or nil if no bounce
// buffer was required.
func (d *DMABuffer) Bytes() []byte { return d.bounce }
