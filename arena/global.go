package arena

import "unsafe"

// DefaultPool is a process-global Pool for callers happy with a single
// arena and no explicit Pool threading — source-compatibility with a
// hypothetical single-arena caller, not something the allocator's own
// algorithms depend on. Every real entry point lives on *Pool.
var DefaultPool *Pool

// InitGlobal builds DefaultPool over buf, replacing any previous one.
func InitGlobal(buf []byte, cfg Config) error {
	p, err := New(buf, cfg)
	if err != nil {
		return err
	}
	DefaultPool = p
	return nil
}

// MallocGlobal allocates from DefaultPool.
func MallocGlobal(n int) (unsafe.Pointer, error) {
	return DefaultPool.Malloc(n)
}

// FreeGlobal releases a pointer previously returned by MallocGlobal.
func FreeGlobal(ptr unsafe.Pointer) error {
	return DefaultPool.Free(ptr)
}
