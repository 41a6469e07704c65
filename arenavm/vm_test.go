package arenavm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmheap/arenamalloc/arena"
	"github.com/vmheap/arenamalloc/arenabuf"
)

func newTestVM(t *testing.T) *VM {
	t.Helper()
	pool, err := arena.New(arenabuf.New(8192), arena.Config{Seed: 7})
	require.NoError(t, err)
	return New(pool)
}

func TestOpNewIntRoundTrip(t *testing.T) {
	vm := newTestVM(t)

	v, err := vm.OpNewInt(42)
	require.NoError(t, err)
	assert.EqualValues(t, 42, vm.Int(v))

	require.NoError(t, vm.OpFree(v))
}

func TestOpNewPairRoundTrip(t *testing.T) {
	vm := newTestVM(t)

	a, err := vm.OpNewInt(1)
	require.NoError(t, err)
	b, err := vm.OpNewInt(2)
	require.NoError(t, err)

	pair, err := vm.OpNewPair(a, b)
	require.NoError(t, err)

	ga, gb := vm.Pair(pair)
	assert.Equal(t, a, ga)
	assert.Equal(t, b, gb)
}

func TestOpFreeThenFreeAgainIsNoOp(t *testing.T) {
	vm := newTestVM(t)

	v, err := vm.OpNewInt(7)
	require.NoError(t, err)
	require.NoError(t, vm.OpFree(v))
	assert.NoError(t, vm.OpFree(v), "freeing an already-freed value must be a silent no-op")
}

func TestChurnDoesNotLeak(t *testing.T) {
	vm := newTestVM(t)
	initial := vm.Pool.FreeBytes()

	for i := 0; i < 200; i++ {
		v, err := vm.OpNewInt(int64(i))
		require.NoError(t, err)
		require.NoError(t, vm.OpFree(v))
	}

	assert.Equal(t, initial, vm.Pool.FreeBytes())
}
