package arena

import (
	"math"
	"unsafe"

	"github.com/vmheap/arenamalloc/arena/internal/randsrc"
)

// defaultSeed seeds the pool's default SplitMix64 source when Config leaves
// both Seed and RandSource unset. It has no significance beyond being a
// fixed, non-zero constant, so a pool built with a zero Config is still
// reproducible across runs.
const defaultSeed = 0x5EED5EED5EED5EED

// Config configures a Pool at construction. There is deliberately no file-
// or environment-based configuration path — every knob is a Go value the
// caller passes to New, matching the rest of this package's constructor-
// option style.
type Config struct {
	// Seed seeds the default SplitMix64 random source. Ignored if
	// RandSource is set.
	Seed uint64
	// RandSource, if set, overrides the default PRNG the skip list uses
	// to draw node heights. Supplying a fixed sequence is the usual way
	// to make a test's fragmentation pattern deterministic.
	RandSource randsrc.Source
}

// Pool is a fixed-arena allocator over a single caller-supplied []byte. It
// is not safe for concurrent use: every Malloc/Free must complete before
// the next begins.
type Pool struct {
	buf  []byte
	base unsafe.Pointer

	freeMemory int64

	remainderLo          int32
	remainderHi          int32
	remainderLoPrevAlloc bool

	fastBins [fastBinCount]int32

	rand randsrc.Source
}

// New builds a Pool over buf. buf's length is fixed for the pool's
// lifetime (short of a later Migrate) and must fit within the int32 byte
// offsets every in-arena structure uses.
func New(buf []byte, cfg Config) (*Pool, error) {
	if len(buf) < int(sentinelOffset+sentinelSize+minSortedBlock) {
		return nil, ErrArenaTooSmall
	}
	if len(buf) > math.MaxInt32 {
		return nil, ErrArenaTooLarge
	}

	p := &Pool{
		buf:  buf,
		base: unsafe.Pointer(&buf[0]),
		rand: cfg.RandSource,
	}
	if p.rand == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = defaultSeed
		}
		p.rand = randsrc.NewSplitMix64(seed)
	}
	p.init()
	return p, nil
}

// init (re-)establishes the pool header: the sentinel node, an empty set
// of fast bins, and a remainder spanning everything past the sentinel.
func (p *Pool) init() {
	p.setHeader(sentinelOffset, packHeader(uint32(sentinelSize), true, true))
	p.setNodeLevel(sentinelOffset, maxLevel)
	p.setNodePred(sentinelOffset, noBlock)
	p.setNodeSucc(sentinelOffset, noBlock)
	for i := int32(0); i < maxLevel; i++ {
		p.setFwd(sentinelOffset, i, noBlock)
	}

	p.remainderLo = sentinelOffset + sentinelSize
	// remainder_hi must stay congruent to sentinelOffset mod 8 so that
	// every block carved downward from it keeps its payload 8-aligned;
	// any trailing 0-7 bytes past that point are slack, never carved.
	usableLen := int32(len(p.buf)) - sentinelOffset
	p.remainderHi = sentinelOffset + (usableLen &^ 7)
	p.remainderLoPrevAlloc = true
	p.fastBins = [fastBinCount]int32{}
	p.freeMemory = int64(p.remainderHi - p.remainderLo)
}

// Destroy releases the pool's hold on its backing buffer. It does not
// (cannot) free host memory — buf is the caller's own slice — but it
// leaves the Pool unusable, surfacing use-after-destroy as a nil-pointer
// panic rather than silent corruption of a buffer the caller may have
// already repurposed.
func (p *Pool) Destroy() {
	p.buf = nil
	p.base = nil
}

// FreeBytes reports the number of payload bytes currently available across
// the fast bins, the sorted bins, and the remainder combined.
func (p *Pool) FreeBytes() int64 { return p.freeMemory }

func (p *Pool) ptr(off int32) unsafe.Pointer { return unsafe.Add(p.base, off+headerSize) }

// PointerAt returns the payload pointer for a block offset previously
// returned by MallocOffset. It is the inverse of the offset a caller who
// prefers Pool's position-independent handles gets back instead of a raw
// unsafe.Pointer from Malloc.
func (p *Pool) PointerAt(off int32) unsafe.Pointer { return p.ptr(off) }

func (p *Pool) offsetOf(ptr unsafe.Pointer) (int32, error) {
	delta := uintptr(ptr) - uintptr(p.base)
	if delta < headerSize || delta >= uintptr(len(p.buf)) {
		return 0, ErrInvalidPointer
	}
	return int32(delta) - headerSize, nil
}

// MallocOffset allocates n payload bytes and returns the block's offset —
// the position-independent handle that survives a later Migrate, unlike
// the unsafe.Pointer Malloc returns.
func (p *Pool) MallocOffset(n int) (int32, error) {
	size := int32(aligned(n))

	var off int32
	var ok bool
	if size <= fastBinMaxSize {
		off, ok = p.fastBinAlloc(size)
	} else {
		off, ok = p.sortedAlloc(size)
	}
	if !ok {
		return 0, ErrOutOfMemory
	}
	return off, nil
}

// Malloc allocates n payload bytes and returns a pointer to them, or an
// error if the pool cannot satisfy the request.
func (p *Pool) Malloc(n int) (unsafe.Pointer, error) {
	off, err := p.MallocOffset(n)
	if err != nil {
		return nil, err
	}
	return p.ptr(off), nil
}

// FreeOffset releases a block previously returned by MallocOffset. An
// out-of-range offset or a block that is already free is silently ignored,
// matching free's no-op-on-invalid-input contract rather than signaling an
// error a caller would have to handle.
func (p *Pool) FreeOffset(off int32) error {
	if off < 0 || off >= int32(len(p.buf)) {
		return nil
	}
	if !p.isAllocated(off) {
		return nil
	}

	size := p.blockSize(off)
	if size <= fastBinMaxSize {
		p.fastBinFree(off)
	} else {
		p.sortedFree(off)
	}
	return nil
}

// Free releases a block previously returned by Malloc. A nil or otherwise
// invalid pointer is silently ignored, same as FreeOffset.
func (p *Pool) Free(ptr unsafe.Pointer) error {
	off, err := p.offsetOf(ptr)
	if err != nil {
		return nil
	}
	return p.FreeOffset(off)
}

// Realloc resizes the block at ptr to hold n payload bytes, preserving its
// contents up to the smaller of the old and new sizes. It grows in place
// when the block already has enough room or its immediate physical
// neighbor is a free sorted block large enough to absorb; otherwise it
// falls back to allocate-copy-free.
func (p *Pool) Realloc(ptr unsafe.Pointer, n int) (unsafe.Pointer, error) {
	off, err := p.offsetOf(ptr)
	if err != nil {
		return nil, err
	}

	oldSize := p.blockSize(off)
	newSize := int32(aligned(n))

	if newSize <= oldSize {
		return ptr, nil
	}

	if oldSize > fastBinMaxSize && newSize > fastBinMaxSize {
		if nxt := off + oldSize; nxt < p.remainderLo && !p.isAllocated(nxt) {
			grown := oldSize + p.blockSize(nxt)
			if grown >= newSize {
				p.removeSorted(nxt)
				didSplit := grown-newSize >= minSortedBlock
				if didSplit {
					tailOff, tailSize := split(off, newSize, grown)
					p.setHeader(tailOff, packHeader(uint32(tailSize), false, true))
					p.setFooter(tailOff, packHeader(uint32(tailSize), false, true))
					p.insertSorted(tailOff, tailSize)
					grown = newSize
				}
				p.freeMemory -= int64(grown - oldSize)
				p.setHeader(off, packHeader(uint32(grown), true, p.isPrevAllocated(off)))
				if !didSplit {
					p.fixNextPrevFlagSorted(off)
				}
				return ptr, nil
			}
		}
	}

	newPtr, err := p.Malloc(n)
	if err != nil {
		return nil, err
	}
	copy(unsafe.Slice((*byte)(newPtr), n), unsafe.Slice((*byte)(ptr), oldSize-headerSize))
	_ = p.FreeOffset(off)
	return newPtr, nil
}

// Migrate moves the pool onto a new backing buffer of identical length,
// typically after the host has relocated or grown the surrounding region.
// Every in-arena structure is offset-relative, so migration is a single
// bulk copy plus rebasing the pool header's own base pointer — no fixups
// are needed anywhere inside the arena itself.
func (p *Pool) Migrate(newBuf []byte) error {
	if len(newBuf) != len(p.buf) {
		return ErrMigrateSize
	}
	copy(newBuf, p.buf)
	p.buf = newBuf
	p.base = unsafe.Pointer(&newBuf[0])
	return nil
}
