package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walkPhysical visits every block from the sentinel to the end of the
// carved (non-remainder) region in address order, calling visit with each
// block's offset. It is the test-only analogue of "walk the arena".
func walkPhysical(p *Pool, visit func(off int32)) {
	off := sentinelOffset
	for off < p.remainderLo {
		visit(off)
		off += p.blockSize(off)
	}
}

// P2: for every physical block B, P(next(B)) == A(B).
func TestPropertyP2PrevFlagConsistency(t *testing.T) {
	p := newTestPool(t, 30*1024)

	var offs []int32
	for i := 0; i < 10; i++ {
		off, ok := p.sortedAlloc(int32(aligned(40)))
		require.True(t, ok)
		offs = append(offs, off)
	}
	for i := 0; i < 10; i++ {
		off, ok := p.sortedAlloc(int32(aligned(100)))
		require.True(t, ok)
		offs = append(offs, off)
	}
	// Free every other block so both free and allocated neighbors exist.
	for i, off := range offs {
		if i%2 == 0 {
			p.sortedFree(off)
		}
	}

	walkPhysical(p, func(off int32) {
		if nxt := off + p.blockSize(off); nxt < p.remainderLo {
			assert.Equal(t, p.isAllocated(off), p.isPrevAllocated(nxt),
				"block at %d: A=%v but next block's P=%v", off, p.isAllocated(off), p.isPrevAllocated(nxt))
		}
	})
}

// P1: free_memory equals the sum of (SIZE-4) over free blocks plus the
// remainder's own size.
func TestPropertyP1FreeMemoryAccounting(t *testing.T) {
	p := newTestPool(t, 16384)

	var offs []int32
	for _, n := range []int{40, 100, 60, 200, 16} {
		off, err := p.MallocOffset(n)
		require.NoError(t, err)
		offs = append(offs, off)
	}
	for i, off := range offs {
		if i%2 == 1 {
			require.NoError(t, p.FreeOffset(off))
		}
	}

	var sum int64
	walkPhysical(p, func(off int32) {
		if !p.isAllocated(off) {
			sum += int64(p.blockSize(off) - headerSize)
		}
	})
	// Fast-bin free blocks aren't inside [sentinel, remainder_lo), so walk
	// them too.
	for _, head := range p.fastBins {
		for off := head; off != 0; off = p.fastNext(off) {
			sum += int64(p.blockSize(off) - headerSize)
		}
	}
	sum += int64(p.remainderLen())

	assert.Equal(t, sum, p.FreeBytes())
}

// P3: the skip list's base-level chain is sorted by size.
func TestPropertyP3SkipListSorted(t *testing.T) {
	p := newTestPool(t, 16384)

	var offs []int32
	for _, n := range []int{300, 100, 500, 200, 400} {
		off, ok := p.sortedAlloc(int32(aligned(n)))
		require.True(t, ok)
		offs = append(offs, off)
	}
	for _, off := range offs {
		p.sortedFree(off)
	}

	var sizes []int32
	for cur := p.fwd(sentinelOffset, 0); cur != noBlock; cur = p.fwd(cur, 0) {
		sizes = append(sizes, p.blockSize(cur))
	}
	for i := 1; i < len(sizes); i++ {
		assert.LessOrEqual(t, sizes[i-1], sizes[i])
	}
}

// P4: every duplicate matches its head's size and carries no forward
// indices of its own.
func TestPropertyP4DuplicatesMatchHead(t *testing.T) {
	p := newTestPool(t, 16384)

	a, ok := p.sortedAlloc(int32(aligned(250)))
	require.True(t, ok)
	// Allocated separators keep a and b from coalescing when freed.
	_, ok = p.sortedAlloc(minSortedBlock)
	require.True(t, ok)
	b, ok := p.sortedAlloc(int32(aligned(250)))
	require.True(t, ok)
	_, ok = p.sortedAlloc(minSortedBlock)
	require.True(t, ok)
	p.sortedFree(a)
	p.sortedFree(b)

	head := p.findHeadGE(int32(aligned(250)))
	require.NotEqual(t, noBlock, head)
	dup := p.nodeSucc(head)
	require.NotEqual(t, noBlock, dup)

	assert.Equal(t, p.blockSize(head), p.blockSize(dup))
	assert.EqualValues(t, 0, p.nodeLevel(dup))
}

// P5: every block in fast_bins[k] has size 8*(k+1).
func TestPropertyP5FastBinSizeClasses(t *testing.T) {
	p := newTestPool(t, 8192)

	for k := 0; k < fastBinCount; k++ {
		size := int32(8 * (k + 1))
		off, ok := p.fastBinAlloc(size)
		require.True(t, ok)
		p.fastBinFree(off)
	}

	for k, head := range p.fastBins {
		want := int32(8 * (k + 1))
		for off := head; off != 0; off = p.fastNext(off) {
			assert.Equal(t, want, p.blockSize(off), "fast_bins[%d]", k)
		}
	}
}

// P6: after a balanced sequence of malloc/free, the arena returns to its
// initial occupancy.
func TestPropertyP6RoundTrip(t *testing.T) {
	p := newTestPool(t, 16384)
	initialFree := p.FreeBytes()
	initialRemainderLo := p.remainderLo

	var ptrs []int32
	for _, n := range []int{8, 40, 100, 16, 300, 64} {
		off, err := p.MallocOffset(n)
		require.NoError(t, err)
		ptrs = append(ptrs, off)
	}
	for i := len(ptrs) - 1; i >= 0; i-- {
		require.NoError(t, p.FreeOffset(ptrs[i]))
	}

	assert.Equal(t, initialFree, p.FreeBytes())
	assert.Equal(t, initialRemainderLo, p.remainderLo, "every sorted carve should have been absorbed back on free")
}

// P7: every Malloc'd pointer is 8-byte aligned and lies within the arena.
func TestPropertyP7Alignment(t *testing.T) {
	p := newTestPool(t, 8192)

	for _, n := range []int{1, 8, 40, 64, 100, 1000} {
		ptr, err := p.Malloc(n)
		require.NoError(t, err)
		addr := uintptr(ptr)
		assert.Zero(t, addr%8, "n=%d", n)

		base := uintptr(p.base)
		assert.GreaterOrEqual(t, addr, base)
		assert.Less(t, addr, base+uintptr(len(p.buf)))
	}
}
