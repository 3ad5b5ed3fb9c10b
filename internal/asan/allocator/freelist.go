package allocator

import "sync"

// maxClassShift bounds the size classes, which bucket payload sizes by the
// next power of two, from G up to 1<<maxClassShift bytes; this is the
// structural upper bound of the bucket array itself
// (Config.LargeMallocThreshold, configurable, picks the actual cutoff at or
// below this; it can never be raised past this ceiling, since no bucket
// exists above it).
const maxClassShift = 24 // 16 MiB; above this a chunk can never be size-classed

// classFor returns the size-class bucket index for a rounded payload size
// (already a multiple of G), or -1 if size exceeds the bucketed range.
func classFor(size uintptr) int {
	if size == 0 {
		size = 1
	}
	shift := 0
	bound := uintptr(1)
	for bound < size {
		bound <<= 1
		shift++
	}
	if shift > maxClassShift {
		return -1
	}
	return shift
}

func classSize(class int) uintptr {
	return uintptr(1) << class
}

// bucket is one size-classed freelist: a singly-linked list of free chunks
// of identical class, protected by its own lock so unrelated size classes
// never contend (spec §5 "serialized per bucket").
type bucket struct {
	mu   sync.Mutex
	head *Chunk
}

// pop removes and returns a chunk from the bucket, or nil if empty.
func (b *bucket) pop() *Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.head
	if c != nil {
		b.head = c.next
		c.next = nil
	}
	return c
}

// push returns a chunk to the bucket's free list.
func (b *bucket) push(c *Chunk) {
	b.mu.Lock()
	c.next = b.head
	b.head = c
	b.mu.Unlock()
}
