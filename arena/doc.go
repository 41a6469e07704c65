// Package arena implements a fixed-arena, general-purpose dynamic memory
// allocator for hosts with no recourse to an operating system allocator —
// the caller hands it one contiguous []byte at Init and every Malloc/Free
// afterward is served out of that buffer alone.
//
// Small requests (block size of at most 64 bytes once the 4-byte header is
// added and the total rounded up to 8) are served by
// eight segregated LIFO free lists ("fast bins"); everything else is served
// by a size-ordered skip list of free blocks ("sorted bins") with
// boundary-tag coalescing. See skiplist.go for the sorted-bin machinery,
// which is the bulk of the package.
//
// Pool is not safe for concurrent use. Every entry point must run to
// completion before the next begins.
package arena
