package arena

import "unsafe"

const (
	// headerSize is the 4-byte boundary tag every block (allocated or
	// free) carries at its start.
	headerSize = 4
	// footerSize is the 4-byte duplicate of the header that free
	// sorted-bin blocks carry at their end, enabling O(1) lookup of a
	// preceding block's size during upward coalescing (the footer read
	// belongs to the block *before* the one being freed).
	footerSize = 4

	// maxLevel is L, the maximum skip-list height.
	maxLevel = 13

	// fastBinCount is the number of segregated small-object free lists,
	// one per size class 8*(k+1), k in [0, fastBinCount).
	fastBinCount = 8
	// fastBinMaxSize is the largest total block size served by a fast
	// bin (8 * fastBinCount).
	fastBinMaxSize = 8 * fastBinCount

	// sortedNodeOverhead is the fixed, payload-free size of a sorted-bin
	// free node: header + pred + succ + level + offsets[maxLevel] +
	// footer. It is also the minimum size a sorted-bin block may have,
	// since every free sorted block must be able to hold its own index
	// structure.
	sortedNodeOverhead = headerSize + 4 /*pred*/ + 4 /*succ*/ + 4 /*level*/ + maxLevel*4 + footerSize

	// minSortedBlock is the minimum size of a sorted-bin block.
	minSortedBlock = sortedNodeOverhead

	// sentinelOffset is the fixed arena offset of the skip-list head
	// sentinel. It sits 4 bytes into the arena, not at byte 0: every block
	// start is congruent to sentinelOffset mod 8 (sizes are always
	// multiples of 8), and a payload pointer is a block's start plus the
	// 4-byte header — so starting the sentinel at 4 rather than 0 is what
	// makes every payload address land on an 8-byte boundary (P7) rather
	// than 4 mod 8. The four leading bytes are unused padding, the "pool
	// header" region I1 sets aside from the rest of the arena's byte
	// accounting.
	sentinelOffset int32 = 4
	// sentinelSize is the size reserved for the sentinel; it is shaped
	// exactly like a sorted-bin node (it needs the full offsets array)
	// but never holds payload and is never freed or coalesced.
	sentinelSize = sortedNodeOverhead

	// noBlock is the public "not found" / "absent" return value used by
	// find and the allocate paths. It is distinct from the in-arena
	// "absent neighbor" encoding (0), which always means "the owning
	// node has no such neighbor" rather than "nothing was found".
	noBlock int32 = -1
)

const (
	flagAllocated     uint32 = 1 << 0
	flagPrevAllocated uint32 = 1 << 1
	sizeMask          uint32 = ^uint32(0x7)
)

// packHeader builds the 32-bit boundary tag for a block of the given total
// size (header included, a multiple of 8) and flag state.
func packHeader(size uint32, allocated, prevAllocated bool) uint32 {
	h := size &^ 0x7
	if allocated {
		h |= flagAllocated
	}
	if prevAllocated {
		h |= flagPrevAllocated
	}
	return h
}

func headerSizeOf(h uint32) uint32    { return h & sizeMask }
func headerAllocated(h uint32) bool   { return h&flagAllocated != 0 }
func headerPrevAlloc(h uint32) bool   { return h&flagPrevAllocated != 0 }

// roundUp8 rounds n up to the next multiple of 8.
func roundUp8(n int) int {
	return (n + 7) &^ 7
}

// aligned returns the total block size (header included) needed to satisfy
// a user request of n payload bytes.
func aligned(n int) int {
	if n <= 0 {
		n = 1
	}
	return roundUp8(n + headerSize)
}

// u32At and i32At are the only two raw accessors into the arena; every
// other field read/write in this package goes through them so the offset
// arithmetic that keeps the arena self-contained stays in one place.
func (p *Pool) u32At(off int32) *uint32 {
	return (*uint32)(unsafe.Add(p.base, off))
}

func (p *Pool) i32At(off int32) *int32 {
	return (*int32)(unsafe.Add(p.base, off))
}

func (p *Pool) header(off int32) uint32        { return *p.u32At(off) }
func (p *Pool) setHeader(off int32, h uint32)   { *p.u32At(off) = h }
func (p *Pool) blockSize(off int32) int32       { return int32(headerSizeOf(p.header(off))) }
func (p *Pool) isAllocated(off int32) bool      { return headerAllocated(p.header(off)) }
func (p *Pool) isPrevAllocated(off int32) bool  { return headerPrevAlloc(p.header(off)) }

func (p *Pool) setAllocated(off int32, allocated bool) {
	h := p.header(off)
	if allocated {
		h |= flagAllocated
	} else {
		h &^= flagAllocated
	}
	p.setHeader(off, h)
}

func (p *Pool) setPrevAllocated(off int32, allocated bool) {
	h := p.header(off)
	if allocated {
		h |= flagPrevAllocated
	} else {
		h &^= flagPrevAllocated
	}
	p.setHeader(off, h)
}

// nextBlock returns the offset of the block physically following off, or
// noBlock if off's block reaches (or would exceed) the end of the arena's
// carvable region. Trailing slack bytes past that end never hold a block.
func (p *Pool) nextBlock(off int32) int32 {
	nxt := off + p.blockSize(off)
	end := sentinelOffset + (int32(len(p.buf))-sentinelOffset)&^7
	if nxt >= end {
		return noBlock
	}
	return nxt
}

// footer reads the boundary tag duplicated in a free sorted-bin block's
// last 4 bytes.
func (p *Pool) footer(off int32) uint32 {
	size := p.blockSize(off)
	return *p.u32At(off + size - footerSize)
}

func (p *Pool) setFooter(off int32, h uint32) {
	size := int32(headerSizeOf(h))
	*p.u32At(off+size-footerSize) = h
}

// zeroPayload clears every byte of a block of the given total size after
// its header, including the footer position, so a free sorted block's
// footer is written after zeroing. Both Malloc and Free zero payloads, so a
// stale value never
// leaks across a free/alloc boundary.
func (p *Pool) zeroPayload(off, size int32) {
	start := off + headerSize
	end := off + size
	for o := start; o < end; o += 8 {
		if o+8 <= end {
			*(*uint64)(unsafe.Add(p.base, o)) = 0
		} else {
			for b := o; b < end; b++ {
				*(*byte)(unsafe.Add(p.base, b)) = 0
			}
		}
	}
}
