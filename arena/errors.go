package arena

import "errors"

var (
	// ErrArenaTooSmall is returned by New when buf cannot even hold the
	// sentinel and one minimal sorted-bin block.
	ErrArenaTooSmall = errors.New("arena: buffer too small to host a pool")

	// ErrArenaTooLarge is returned by New when buf's length would overflow
	// the int32 offsets every in-arena structure is built on.
	ErrArenaTooLarge = errors.New("arena: buffer exceeds the 2GiB offset limit")

	// ErrOutOfMemory is returned by Malloc/MallocOffset when neither a
	// fast bin, a sorted bin, nor the remainder can satisfy a request.
	ErrOutOfMemory = errors.New("arena: out of memory")

	// ErrInvalidPointer is returned by Realloc when ptr does not fall
	// within the pool's backing buffer. Free/FreeOffset never return it —
	// an invalid or already-free pointer is a silent no-op there, matching
	// a free-style call's contract, while Realloc has nothing sensible to
	// grow or copy from an address it can't resolve.
	ErrInvalidPointer = errors.New("arena: pointer out of range")

	// ErrMigrateSize is returned by Migrate when the destination buffer's
	// length does not match the source exactly.
	ErrMigrateSize = errors.New("arena: migrate target size mismatch")
)
