// Package arenavm is a small bytecode-VM-shaped consumer of arena.Pool: a
// tight allocate/mutate/free loop over a handful of tagged value kinds,
// standing in for the embedded host spec.md's allocator targets (spec.md
// §1 calls out "notably a bytecode virtual machine" without prescribing
// one). It exists to exercise Pool under VM-like churn — many small,
// short-lived values plus a few long-lived ones — not to be a real
// language runtime.
package arenavm

import (
	"encoding/binary"
	"log"
	"runtime/debug"
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/vmheap/arenamalloc/arena"
)

// Tag identifies the shape of a value a VM instruction produced.
type Tag uint8

const (
	TagInt Tag = iota + 1
	TagPair
)

// Every value's arena payload starts with a one-byte tag recording its
// kind, followed by the value's bytes. OpFree, Int and Pair do not read
// the tag back.
const tagSize = 1

// Value is a position-independent handle into a VM's Pool: the offset of
// a tagged value's block, not a live pointer. It stays valid across a
// Migrate the same way any other Pool offset does.
type Value int32

// VM runs opcodes against a single arena.Pool.
type VM struct {
	Pool *arena.Pool

	// PanicHandler, if set, replaces the default log.Printf recovery for
	// a handler that panics.
	PanicHandler func(op string, r interface{})
}

// New wraps an already-initialized pool.
func New(pool *arena.Pool) *VM {
	return &VM{Pool: pool}
}

func (vm *VM) recoverOp(op string) {
	if r := recover(); r != nil {
		if vm.PanicHandler != nil {
			vm.PanicHandler(op, r)
			return
		}
		log.Printf("ARENAVM: panic in %s: %v: %s", op, r, debug.Stack())
	}
}

// OpNewInt allocates a tagged 64-bit integer value.
func (vm *VM) OpNewInt(n int64) (v Value, err error) {
	defer vm.recoverOp("OpNewInt")

	scratch := mcache.Malloc(tagSize + 8)
	defer mcache.Free(scratch)
	scratch[0] = byte(TagInt)
	binary.LittleEndian.PutUint64(scratch[tagSize:], uint64(n))

	off, err := vm.Pool.MallocOffset(len(scratch))
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*byte)(vm.Pool.PointerAt(off)), len(scratch)), scratch)
	return Value(off), nil
}

// OpNewPair allocates a tagged pair of two already-allocated values,
// storing their offsets (not live pointers) so the pair itself survives a
// Migrate untouched.
func (vm *VM) OpNewPair(a, b Value) (v Value, err error) {
	defer vm.recoverOp("OpNewPair")

	scratch := mcache.Malloc(tagSize + 8)
	defer mcache.Free(scratch)
	scratch[0] = byte(TagPair)
	binary.LittleEndian.PutUint32(scratch[tagSize:], uint32(a))
	binary.LittleEndian.PutUint32(scratch[tagSize+4:], uint32(b))

	off, err := vm.Pool.MallocOffset(len(scratch))
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*byte)(vm.Pool.PointerAt(off)), len(scratch)), scratch)
	return Value(off), nil
}

// OpFree releases a value's backing block.
func (vm *VM) OpFree(v Value) (err error) {
	defer vm.recoverOp("OpFree")
	return vm.Pool.FreeOffset(int32(v))
}

// Int reads back an int value's payload.
func (vm *VM) Int(v Value) int64 {
	b := unsafe.Slice((*byte)(vm.Pool.PointerAt(int32(v))), tagSize+8)
	return int64(binary.LittleEndian.Uint64(b[tagSize:]))
}

// Pair reads back a pair value's two member offsets.
func (vm *VM) Pair(v Value) (a, b Value) {
	buf := unsafe.Slice((*byte)(vm.Pool.PointerAt(int32(v))), tagSize+8)
	a = Value(binary.LittleEndian.Uint32(buf[tagSize:]))
	b = Value(binary.LittleEndian.Uint32(buf[tagSize+4:]))
	return a, b
}
