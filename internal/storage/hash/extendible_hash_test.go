package hash

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identity hashing makes the split geometry deterministic in tests.
func identity(k int) uint64 {
	return uint64(k)
}

func TestInsertFindRemove(t *testing.T) {
	h := New[int, string](64)

	h.Insert(1, "a")
	h.Insert(2, "b")

	v, ok := h.Find(1)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = h.Find(3)
	assert.False(t, ok, "absent key")

	assert.True(t, h.Remove(1))
	assert.False(t, h.Remove(1), "already removed")
	_, ok = h.Find(1)
	assert.False(t, ok, "find after remove")

	v, ok = h.Find(2)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestInsertOverwrite(t *testing.T) {
	h := New[int, int](2)

	h.Insert(7, 1)
	h.Insert(7, 2)

	v, ok := h.Find(7)
	assert.True(t, ok)
	assert.Equal(t, 2, v, "last insert wins")
	assert.Equal(t, 1, h.Size(), "overwrite does not grow the table")
	assert.Equal(t, 0, h.GetGlobalDepth(), "overwrite never splits")
}

// Bucket capacity 2, keys chosen by their low bits: the third insert
// forces a directory doubling and a split on bit 0.
func TestSplitAtCapacityTwo(t *testing.T) {
	h := NewWithHasher[int, int](2, identity)

	h.Insert(0, 100) // ...00
	h.Insert(2, 102) // ...10
	assert.Equal(t, 0, h.GetGlobalDepth())
	assert.Equal(t, 1, h.GetNumBuckets())

	h.Insert(1, 101) // ...01
	assert.Equal(t, 1, h.GetGlobalDepth())
	assert.Equal(t, 2, h.GetNumBuckets())
	assert.Equal(t, 1, h.GetLocalDepth(0))
	assert.Equal(t, 1, h.GetLocalDepth(1))

	for _, k := range []int{0, 1, 2} {
		v, ok := h.Find(k)
		require.True(t, ok, "key %d after split", k)
		assert.Equal(t, 100+k, v)
	}
}

// Keys sharing all low bits force repeated doubling until the hash
// finally distinguishes them.
func TestRepeatedDoubling(t *testing.T) {
	h := NewWithHasher[int, int](2, identity)

	// 0, 4, 8: identical in bits 0-1, so depth must reach 3 before
	// bit 2 splits 0b100 away from 0b000 and 0b1000, which then share
	// one bucket of capacity 2.
	h.Insert(0, 0)
	h.Insert(4, 4)
	h.Insert(8, 8)

	assert.GreaterOrEqual(t, h.GetGlobalDepth(), 3)
	assert.Equal(t, 1<<h.GetGlobalDepth(), h.GetNumBuckets(), "directory length is 2^globalDepth")

	for _, k := range []int{0, 4, 8} {
		v, ok := h.Find(k)
		require.True(t, ok, "key %d", k)
		assert.Equal(t, k, v)
	}
}

// Directory shape invariants hold after arbitrary insert sequences.
func TestDirectoryShapeInvariant(t *testing.T) {
	h := New[int, int](4)

	for i := 0; i < 500; i++ {
		h.Insert(i, i*i)

		global := h.GetGlobalDepth()
		require.Equal(t, 1<<global, h.GetNumBuckets())
		for slot := 0; slot < h.GetNumBuckets(); slot++ {
			require.LessOrEqual(t, h.GetLocalDepth(slot), global,
				"slot %d after insert %d", slot, i)
		}
	}

	for i := 0; i < 500; i++ {
		v, ok := h.Find(i)
		require.True(t, ok, "key %d survives splits", i)
		require.Equal(t, i*i, v)
	}
	assert.Equal(t, 500, h.Size())
}

// Slots whose low localDepth bits agree must alias the same bucket.
func TestDirectoryAliasing(t *testing.T) {
	h := NewWithHasher[int, int](2, identity)
	for i := 0; i < 64; i++ {
		h.Insert(i, i)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.directory {
		mask := (1 << b.localDepth) - 1
		for j := i; j < len(h.directory); j++ {
			if j&mask == i&mask {
				require.Same(t, b, h.directory[j],
					"slots %d and %d agree on low %d bits", i, j, b.localDepth)
			}
		}
	}
}

func TestStringKeys(t *testing.T) {
	h := New[string, int](2)

	words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	for i, w := range words {
		h.Insert(w, i)
	}
	for i, w := range words {
		v, ok := h.Find(w)
		require.True(t, ok, "word %q", w)
		assert.Equal(t, i, v)
	}
	assert.False(t, h.Remove("eta"))
	assert.True(t, h.Remove("beta"))
	_, ok := h.Find("beta")
	assert.False(t, ok)
}

func TestConcurrentInsertFind(t *testing.T) {
	h := New[int, int](8)

	const goroutines = 8
	const perGoroutine = 250

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				k := base*perGoroutine + i
				h.Insert(k, k)
			}
		}(g)
	}
	wg.Wait()

	for k := 0; k < goroutines*perGoroutine; k++ {
		v, ok := h.Find(k)
		require.True(t, ok, "key %d", k)
		require.Equal(t, k, v)
	}
	assert.Equal(t, goroutines*perGoroutine, h.Size())
}

func TestPanicsOnBadBucketSize(t *testing.T) {
	assert.Panics(t, func() { New[int, int](0) })
}

func TestDefaultHasherDeterministic(t *testing.T) {
	for _, k := range []int{0, 1, 42, 1 << 20} {
		assert.Equal(t, defaultHasher(k), defaultHasher(k), "hash of %d stable", k)
	}
	assert.Equal(t, defaultHasher("page"), defaultHasher("page"))
	assert.Equal(t, defaultHasher(fmt.Sprintf("%d", 7)), defaultHasher("7"))
}
