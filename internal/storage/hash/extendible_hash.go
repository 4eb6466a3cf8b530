package hash

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/OneOfOne/xxhash"

	util "github.com/lamdo812/bufferdb/internal/utils"
)

// ExtendibleHash is an associative map whose directory grows by doubling.
// Buckets hold at most bucketSize entries; an overflowing bucket splits in
// place, so growth never rehashes the whole table. Multiple directory
// slots may alias the same bucket until a split separates them.
//
// All operations serialize on an internal latch.
type ExtendibleHash[K comparable, V any] struct {
	mu          sync.Mutex
	globalDepth int
	bucketSize  int
	directory   []*bucket[K, V]
	hasher      func(K) uint64
}

type bucket[K comparable, V any] struct {
	localDepth int
	contents   map[K]V
}

func newBucket[K comparable, V any](depth int) *bucket[K, V] {
	return &bucket[K, V]{localDepth: depth, contents: make(map[K]V)}
}

// New creates a table with one empty bucket at depth 0.
func New[K comparable, V any](bucketSize int) *ExtendibleHash[K, V] {
	return NewWithHasher[K, V](bucketSize, defaultHasher[K])
}

// NewWithHasher creates a table with a caller-supplied hash function.
// The hasher must be deterministic within one process lifetime; its
// quality bounds split depth on adversarial keys.
func NewWithHasher[K comparable, V any](bucketSize int, hasher func(K) uint64) *ExtendibleHash[K, V] {
	if bucketSize <= 0 {
		panic(util.ErrInvalidBucketSize)
	}
	h := &ExtendibleHash[K, V]{
		globalDepth: 0,
		bucketSize:  bucketSize,
		hasher:      hasher,
	}
	h.directory = append(h.directory, newBucket[K, V](0))
	return h
}

// defaultHasher feeds the key's binary form through xxhash64.
func defaultHasher[K comparable](key K) uint64 {
	h := xxhash.New64()
	var buf [8]byte
	switch k := any(key).(type) {
	case string:
		h.WriteString(k)
	case int:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h.Write(buf[:])
	case int32:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h.Write(buf[:])
	case int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h.Write(buf[:])
	case uint32:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h.Write(buf[:])
	case uint64:
		binary.LittleEndian.PutUint64(buf[:], k)
		h.Write(buf[:])
	case util.PageID:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h.Write(buf[:])
	case util.FrameID:
		binary.LittleEndian.PutUint64(buf[:], uint64(k))
		h.Write(buf[:])
	default:
		fmt.Fprintf(h, "%v", k)
	}
	return h.Sum64()
}

// bucketIndex masks the hash down to the low globalDepth bits.
func (h *ExtendibleHash[K, V]) bucketIndex(hashKey uint64) int {
	return int(hashKey & ((1 << h.globalDepth) - 1))
}

func (h *ExtendibleHash[K, V]) getBucket(key K) *bucket[K, V] {
	return h.directory[h.bucketIndex(h.hasher(key))]
}

// Find returns the value associated with key, if any.
func (h *ExtendibleHash[K, V]) Find(key K) (V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.getBucket(key).contents[key]
	return v, ok
}

// Remove deletes the entry for key. Buckets are never combined.
func (h *ExtendibleHash[K, V]) Remove(key K) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.getBucket(key)
	if _, ok := b.contents[key]; !ok {
		return false
	}
	delete(b.contents, key)
	return true
}

// Insert puts (key, value) into the table, overwriting any previous
// value. A full target bucket splits, doubling the directory first when
// the bucket is already at global depth; splitting repeats until the
// target has room.
func (h *ExtendibleHash[K, V]) Insert(key K, value V) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.getBucket(key)
	if _, ok := b.contents[key]; ok {
		b.contents[key] = value
		return
	}

	for len(b.contents) == h.bucketSize {
		if b.localDepth == h.globalDepth {
			// Double the directory: slot i and slot i+2^globalDepth
			// alias the same bucket until the split below separates
			// them.
			h.directory = append(h.directory, h.directory...)
			h.globalDepth++
		}

		splitLow := newBucket[K, V](b.localDepth + 1)
		splitHigh := newBucket[K, V](b.localDepth + 1)

		mask := uint64(1) << b.localDepth
		for k, v := range b.contents {
			if h.hasher(k)&mask != 0 {
				splitHigh.contents[k] = v
			} else {
				splitLow.contents[k] = v
			}
		}

		for i, slot := range h.directory {
			if slot == b {
				if uint64(i)&mask != 0 {
					h.directory[i] = splitHigh
				} else {
					h.directory[i] = splitLow
				}
			}
		}

		// The target may itself be full again after redistribution.
		b = h.getBucket(key)
	}

	b.contents[key] = value
}

// GetGlobalDepth returns the number of hash bits addressing the directory.
func (h *ExtendibleHash[K, V]) GetGlobalDepth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.globalDepth
}

// GetLocalDepth returns the depth of the bucket at directory slot bucketID.
func (h *ExtendibleHash[K, V]) GetLocalDepth(bucketID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.directory[bucketID].localDepth
}

// GetNumBuckets returns the current directory length.
func (h *ExtendibleHash[K, V]) GetNumBuckets() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.directory)
}

// Size returns the number of entries across all live buckets.
func (h *ExtendibleHash[K, V]) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[*bucket[K, V]]struct{}, len(h.directory))
	total := 0
	for _, b := range h.directory {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		total += len(b.contents)
	}
	return total
}
