package arena

// The remainder is the contiguous span of the arena not yet carved into any
// block, [remainder_lo, remainder_hi). It has no header of its own — it is
// raw, unformatted space — which is why carveLow below tracks the flag a
// freshly carved block's own P would otherwise come from by hand instead
// of reading a block that isn't there.
//
// Sorted-bin requests carve upward from remainder_lo; fast-bin requests
// carve downward from remainder_hi (see fastbin.go). The two carve sites
// never need to know about each other: remainder_lo never exceeds
// remainder_hi, so a sorted block and a fast block are never physically
// adjacent to one another, only ever to the remainder itself or to a block
// of their own kind.

func (p *Pool) remainderLen() int32 { return p.remainderHi - p.remainderLo }

// carveLow takes size bytes off the low end of the remainder for a new,
// immediately-allocated sorted-side block and returns its offset. The
// caller is responsible for anything beyond the boundary tag itself
// (zeroing the payload, registering the block, adjusting free_memory).
func (p *Pool) carveLow(size int32) int32 {
	off := p.remainderLo
	p.setHeader(off, packHeader(uint32(size), true, p.remainderLoPrevAlloc))
	p.remainderLo += size
	p.remainderLoPrevAlloc = true
	return off
}

// absorbLow erases a freed block back into the remainder. It is called
// exactly when a block being freed sits immediately below remainder_lo,
// i.e. off+size(off) == remainder_lo — the one case sortedFree's downward
// coalesce has no real neighbor block to merge with.
func (p *Pool) absorbLow(off int32) {
	p.remainderLo = off
	p.remainderLoPrevAlloc = p.isPrevAllocated(off)
}
