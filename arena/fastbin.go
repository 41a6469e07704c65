package arena

// Fast bins are eight singly-linked LIFO free lists, one per size class
// 8*(k+1) bytes (header included), serving requests that need at most 64
// bytes of block. Unlike sorted bins they are never coalesced: a fast-bin
// block returned to its class is a same-size cache entry, nothing more.
//
// Each free fast-bin node is just a header followed by a single "next"
// offset (absolute, 0 meaning "no next" — offset 0 lies in the arena's
// leading padding before the sentinel, where no block ever starts).
//
// Fast-bin blocks are carved only from the high end of the remainder and,
// once carved, stack contiguously downward with no gaps between them. That
// makes the physically-next block (if any) always just off+size — the same
// arithmetic nextBlock already does for the whole arena — so fixing up a
// neighbor's P flag when this block's own A flag flips never needs to
// consult remainder_lo/remainder_hi at all.

// fastClassForSize maps a total block size (a multiple of 8, in
// [8, fastBinMaxSize]) to its size-class index.
func fastClassForSize(size int32) int {
	return int(size)/8 - 1
}

func (p *Pool) fastNext(off int32) int32 { return *p.i32At(off + headerSize) }
func (p *Pool) setFastNext(off, v int32) { *p.i32At(off + headerSize) = v }

// fixNextPrevFlag updates the P flag of the block physically following off
// (if one exists) to match off's current A flag, preserving I2 whenever a
// block's own allocated state changes.
func (p *Pool) fixNextPrevFlag(off int32) {
	if nxt := p.nextBlock(off); nxt != noBlock {
		p.setPrevAllocated(nxt, p.isAllocated(off))
	}
}

// fastBinAlloc serves a request that fits a fast-bin class. It returns the
// block offset and true, or noBlock and false if the class's free list is
// empty and the remainder can't supply a fresh block.
func (p *Pool) fastBinAlloc(size int32) (int32, bool) {
	k := fastClassForSize(size)
	if head := p.fastBins[k]; head != 0 {
		p.fastBins[k] = p.fastNext(head)
		// A := 1, P preserved — it was set correctly when this block was
		// carved or last pushed back onto the bin.
		p.setAllocated(head, true)
		p.fixNextPrevFlag(head)
		p.zeroPayload(head, size)
		p.freeMemory -= int64(size - headerSize)
		return head, true
	}

	if p.remainderHi-p.remainderLo < size {
		return noBlock, false
	}

	// Carve from the high end. The block immediately above (off+size) is
	// either a previously carved fast block or, on the very first carve,
	// past the arena edge — nextBlock/fixNextPrevFlag handles both. The
	// block's own predecessor is whatever remains of the remainder, never
	// allocated, so P starts false.
	p.remainderHi -= size
	off := p.remainderHi
	p.setHeader(off, packHeader(uint32(size), true, false))
	p.fixNextPrevFlag(off)
	p.zeroPayload(off, size)
	p.freeMemory -= int64(size - headerSize)
	return off, true
}

// fastBinFree returns a block to its class's free list. It is never
// coalesced with neighbors — the bin is a deliberate same-size cache.
func (p *Pool) fastBinFree(off int32) {
	size := p.blockSize(off)
	k := fastClassForSize(size)

	p.setAllocated(off, false)
	p.fixNextPrevFlag(off)
	p.zeroPayload(off, size)
	p.setFastNext(off, p.fastBins[k])
	p.fastBins[k] = off
	p.freeMemory += int64(size - headerSize)
}
