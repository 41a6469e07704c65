package arena

// Sorted bins hold every free block of at least minSortedBlock bytes,
// ordered by size in a skip list rooted at the sentinel (sentinelOffset). A node
// that is the first free block of its exact size becomes a "chain head"
// with its own forward array; later free blocks of that same size attach
// to the head as "duplicates" through a doubly linked pred/succ chain, so
// repeated same-size churn (the common case for a bytecode VM's object
// pool) never touches skip-list levels at all.
//
// Every offset this file stores (pred, succ, each forward slot) is a delta
// relative to the node's own offset, not an absolute arena address — zero
// always means "absent", with no collision against the sentinel's address
// (which nothing ever points at with a zero delta, since a node never
// targets itself).

const (
	nodePredOff  = headerSize      // 4
	nodeSuccOff  = nodePredOff + 4 // 8
	nodeLevelOff = nodeSuccOff + 4 // 12
	nodeFwdOff   = nodeLevelOff + 4 // 16
)

func (p *Pool) nodeLevel(off int32) int32     { return *p.i32At(off + nodeLevelOff) }
func (p *Pool) setNodeLevel(off, lvl int32)   { *p.i32At(off+nodeLevelOff) = lvl }

func (p *Pool) nodePred(off int32) int32 {
	d := *p.i32At(off + nodePredOff)
	if d == 0 {
		return noBlock
	}
	return off + d
}

func (p *Pool) setNodePred(off, target int32) {
	if target == noBlock {
		*p.i32At(off + nodePredOff) = 0
	} else {
		*p.i32At(off + nodePredOff) = target - off
	}
}

func (p *Pool) nodeSucc(off int32) int32 {
	d := *p.i32At(off + nodeSuccOff)
	if d == 0 {
		return noBlock
	}
	return off + d
}

func (p *Pool) setNodeSucc(off, target int32) {
	if target == noBlock {
		*p.i32At(off + nodeSuccOff) = 0
	} else {
		*p.i32At(off + nodeSuccOff) = target - off
	}
}

func (p *Pool) fwd(off, level int32) int32 {
	d := *p.i32At(off + nodeFwdOff + 4*level)
	if d == 0 {
		return noBlock
	}
	return off + d
}

func (p *Pool) setFwd(off, level, target int32) {
	if target == noBlock {
		*p.i32At(off+nodeFwdOff+4*level) = 0
	} else {
		*p.i32At(off+nodeFwdOff+4*level) = target - off
	}
}

// isDuplicate reports whether off is a same-size block chained off a head
// rather than a registered skip-list node in its own right.
func (p *Pool) isDuplicate(off int32) bool { return p.nodeLevel(off) == 0 }

// randomLevel draws a height uniformly from [1, maxLevel]. This is
// deliberately not the classical geometric distribution — see the Design
// Notes around the skip list for why that is preserved rather than fixed.
func (p *Pool) randomLevel() int32 {
	return int32(p.rand.NextUint64()%uint64(maxLevel)) + 1
}

// findUpdate runs the standard skip-list descent for a target size,
// filling update[i] with the head node at level i immediately preceding
// the insertion point for that size (the sentinel itself, if nothing
// smaller exists at that level). The sentinel always has maxLevel forward
// slots, so the descent can start there unconditionally.
func (p *Pool) findUpdate(size int32, update *[maxLevel]int32) {
	cur := sentinelOffset
	for lvl := int32(maxLevel - 1); lvl >= 0; lvl-- {
		for {
			next := p.fwd(cur, lvl)
			if next == noBlock || p.blockSize(next) >= size {
				break
			}
			cur = next
		}
		update[lvl] = cur
	}
}

// findHeadGE returns the smallest registered free head with blockSize >=
// size, or noBlock if none exists.
func (p *Pool) findHeadGE(size int32) int32 {
	var update [maxLevel]int32
	p.findUpdate(size, &update)
	cand := p.fwd(update[0], 0)
	if cand == noBlock {
		return noBlock
	}
	return cand
}

// insertSorted registers a free block into the sorted bins, either as a new
// duplicate of an existing same-size chain or as a brand new chain head.
func (p *Pool) insertSorted(off, size int32) {
	var update [maxLevel]int32
	p.findUpdate(size, &update)

	if head := p.fwd(update[0], 0); head != noBlock && p.blockSize(head) == size {
		// Attach as a duplicate at the front of head's chain.
		p.setNodeLevel(off, 0)
		first := p.nodeSucc(head)
		p.setNodeSucc(head, off)
		p.setNodePred(off, head)
		p.setNodeSucc(off, first)
		if first != noBlock {
			p.setNodePred(first, off)
		}
		return
	}

	lvl := p.randomLevel()
	p.setNodeLevel(off, lvl)
	p.setNodePred(off, noBlock)
	p.setNodeSucc(off, noBlock)
	for i := int32(0); i < lvl; i++ {
		p.setFwd(off, i, p.fwd(update[i], i))
		p.setFwd(update[i], i, off)
	}
}

// removeSorted unregisters a free block from the sorted bins, whether it is
// a duplicate (O(1) splice) or a chain head (promotes its first duplicate,
// if any, into its skip-list position).
func (p *Pool) removeSorted(off int32) {
	if p.isDuplicate(off) {
		pred := p.nodePred(off)
		succ := p.nodeSucc(off)
		if pred != noBlock {
			p.setNodeSucc(pred, succ)
		}
		if succ != noBlock {
			p.setNodePred(succ, pred)
		}
		return
	}

	size := p.blockSize(off)
	var update [maxLevel]int32
	p.findUpdate(size, &update)
	lvl := p.nodeLevel(off)

	if dup := p.nodeSucc(off); dup != noBlock {
		rest := p.nodeSucc(dup)
		p.setNodeLevel(dup, lvl)
		for i := int32(0); i < lvl; i++ {
			p.setFwd(dup, i, p.fwd(off, i))
		}
		p.setNodePred(dup, noBlock)
		p.setNodeSucc(dup, rest)
		if rest != noBlock {
			p.setNodePred(rest, dup)
		}
		for i := int32(0); i < lvl; i++ {
			p.setFwd(update[i], i, dup)
		}
		return
	}

	for i := int32(0); i < lvl; i++ {
		p.setFwd(update[i], i, p.fwd(off, i))
	}
}

// split computes where a size-byte block carved off the front of a
// totalSize-byte free block at off (known to hold at least
// size+minSortedBlock bytes) leaves its tail, returning the tail's offset
// and size. It writes nothing; callers write the tail's header and footer
// and insert it into the sorted bins themselves.
func split(off, size int32, totalSize int32) (tailOff, tailSize int32) {
	return off + size, totalSize - size
}

// merge returns the combined size of a free block at off and the free block
// physically following it at next, both already unregistered from the
// sorted bins. It writes nothing; the caller writes the merged block's
// header and footer at off.
func (p *Pool) merge(off, next int32) int32 {
	return p.blockSize(off) + p.blockSize(next)
}

// fixNextPrevFlagSorted is fixNextPrevFlag's sorted-bin counterpart: it
// must never walk past remainder_lo, since the bytes beyond it aren't a
// block at all. A sorted block's own allocated state changing never needs
// to touch remainder_lo_prev_alloc here — sortedFree always absorbs a
// block that ends exactly at remainder_lo back into the remainder rather
// than leave it registered, so no tracked sorted block's end ever equals
// remainder_lo in the first place.
func (p *Pool) fixNextPrevFlagSorted(off int32) {
	if nxt := off + p.blockSize(off); nxt < p.remainderLo {
		p.setPrevAllocated(nxt, p.isAllocated(off))
	}
}

// sortedAlloc serves a request too big for any fast bin. It prefers an
// exact or smallest-sufficient free block from the sorted bins, splitting
// off any leftover large enough to remain independently useful. A
// sufficient block whose leftover would be too small to register on its
// own (nonzero but under minSortedBlock) is skipped in favor of a second,
// larger search rather than handed out with that leftover wasted inside
// it; if no such larger block exists either, allocation falls back to
// carving fresh space from the remainder.
func (p *Pool) sortedAlloc(size int32) (int32, bool) {
	head := p.findHeadGE(size)
	if head != noBlock {
		if residue := p.blockSize(head) - size; residue > 0 && residue < minSortedBlock {
			head = p.findHeadGE(size + minSortedBlock)
		}
	}

	if head != noBlock {
		blockOff := head
		blockSize := p.blockSize(head)

		// Takes the head itself; if it has a duplicate, removeSorted
		// promotes that duplicate into the head's skip-list position.
		p.removeSorted(head)

		didSplit := blockSize-size >= minSortedBlock
		if didSplit {
			tailOff, tailSize := split(blockOff, size, blockSize)
			// blockOff is about to be marked allocated, so the tail's own
			// predecessor is allocated from the moment it exists.
			p.setHeader(tailOff, packHeader(uint32(tailSize), false, true))
			p.setFooter(tailOff, packHeader(uint32(tailSize), false, true))
			p.insertSorted(tailOff, tailSize)
			blockSize = size
		}

		p.setHeader(blockOff, packHeader(uint32(blockSize), true, p.isPrevAllocated(blockOff)))
		if !didSplit {
			p.fixNextPrevFlagSorted(blockOff)
		}
		p.zeroPayload(blockOff, blockSize)
		p.freeMemory -= int64(blockSize - headerSize)
		return blockOff, true
	}

	if p.remainderLen() >= size {
		off := p.carveLow(size)
		p.zeroPayload(off, size)
		p.freeMemory -= int64(size - headerSize)
		return off, true
	}

	return noBlock, false
}

// sortedFree returns a sorted-bin block to the pool, coalescing with any
// free physical neighbor on either side before registering the (possibly
// now larger) free block.
func (p *Pool) sortedFree(off int32) {
	origSize := p.blockSize(off)
	size := origSize

	if !p.isPrevAllocated(off) {
		predHeader := *p.u32At(off - footerSize)
		predSize := int32(headerSizeOf(predHeader))
		predOff := off - predSize
		p.removeSorted(predOff)
		size = p.merge(predOff, off)
		off = predOff
	}

	absorbed := false
	if nxt := off + size; nxt == p.remainderLo {
		absorbed = true
	} else if nxt < p.remainderLo && !p.isAllocated(nxt) {
		p.removeSorted(nxt)
		size = p.merge(off, nxt)
	}

	keepPrevAlloc := p.isPrevAllocated(off)
	p.zeroPayload(off, size)
	p.freeMemory += int64(origSize - headerSize)

	if absorbed {
		p.absorbLow(off)
		return
	}

	p.setHeader(off, packHeader(uint32(size), false, keepPrevAlloc))
	p.setFooter(off, packHeader(uint32(size), false, keepPrevAlloc))
	p.insertSorted(off, size)
	p.fixNextPrevFlagSorted(off)
}
