package allocator

import "sync/atomic"

// chunkSlot is one entry in the lock-free chunk index: the payload address
// a Chunk was handed out at, and the Chunk itself. Adapted from the pack's
// CAS-based shadow array (fixed-size slot table, FNV/multiplicative hash,
// linear probing, atomic.Pointer) — there it indexed happens-before state
// by address; here it plays the role spec §4.2's "find chunk header from p"
// step needs: a way to recover a chunk's header given only its payload
// pointer, without literally embedding the header inside the left redzone
// the way the C runtime does.
type chunkSlot struct {
	addr  uintptr
	chunk *Chunk
}

const (
	indexSlots = 1 << 16
	indexMask  = indexSlots - 1
	maxProbes  = 8
)

// chunkIndex is the lock-free address -> *Chunk table.
type chunkIndex struct {
	slots [indexSlots]atomic.Pointer[chunkSlot]
}

func newChunkIndex() *chunkIndex {
	return &chunkIndex{}
}

// fastHash is a Fibonacci (golden-ratio multiplicative) integer hash that
// keeps the top 16 bits of the product, chosen (as in the pack's CAS
// shadow) for its speed and spread on both sequential and random
// addresses.
//
//go:nosplit
func fastHash(addr uintptr) uint64 {
	const goldenRatio = 0x9E3779B97F4A7C15
	return (uint64(addr) * goldenRatio) >> 48
}

// Load returns the chunk registered at addr, or nil.
func (x *chunkIndex) Load(addr uintptr) *Chunk {
	h := fastHash(addr)
	for i := uint64(0); i < maxProbes; i++ {
		idx := (h + i) & indexMask
		slot := x.slots[idx].Load()
		if slot == nil {
			return nil
		}
		if slot.addr == addr {
			return slot.chunk
		}
	}
	return nil
}

// Store registers c under addr, evicting nothing: a full 8-probe run is
// treated as "index full for this bucket" and silently drops the
// registration, matching the CAS shadow's documented rare-collision
// tradeoff. In practice indexSlots is sized generously relative to
// realistic live-chunk counts.
func (x *chunkIndex) Store(addr uintptr, c *Chunk) {
	newSlot := &chunkSlot{addr: addr, chunk: c}
	h := fastHash(addr)
	for i := uint64(0); i < maxProbes; i++ {
		idx := (h + i) & indexMask
		for {
			old := x.slots[idx].Load()
			if old != nil && old.addr != addr {
				break // collision, try next probe
			}
			if x.slots[idx].CompareAndSwap(old, newSlot) {
				return
			}
		}
	}
}

// Delete removes the registration at addr, if present.
func (x *chunkIndex) Delete(addr uintptr) {
	h := fastHash(addr)
	for i := uint64(0); i < maxProbes; i++ {
		idx := (h + i) & indexMask
		old := x.slots[idx].Load()
		if old == nil {
			return
		}
		if old.addr == addr {
			x.slots[idx].CompareAndSwap(old, nil)
			return
		}
	}
}
