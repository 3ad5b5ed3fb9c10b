// Package allocator implements the instrumented heap allocator: the
// malloc/realloc/free family, redzones, the quarantine, and the
// size-classed freelist (spec §4.2).
package allocator

import "github.com/kolkov/goasan/internal/asan/stackdepot"

// State is a chunk's lifecycle state (spec §3).
type State int

const (
	Allocated State = iota
	Quarantined
	Freed
)

func (s State) String() string {
	switch s {
	case Allocated:
		return "allocated"
	case Quarantined:
		return "quarantined (freed, in quarantine)"
	case Freed:
		return "freed"
	default:
		return "unknown"
	}
}

// Chunk is a heap allocation's header (spec §3 "Heap chunk"). The header
// itself lives in this Go struct rather than inside the left redzone bytes
// a C runtime would use; it is reachable from a payload address via the
// allocator's chunkIndex, which is the adaptation's stand-in for "payload
// start is at a known offset from chunk start."
type Chunk struct {
	raw     []byte // the full reservation: left redzone + payload + right redzone
	Payload uintptr
	Size    uintptr // requested user size
	Align   uintptr

	AllocTrace stackdepot.ID
	FreeTrace  stackdepot.ID
	OwnerTID   uint64

	State State

	class int  // bucket index for size-classed chunks; -1 for large/mmap'd
	large bool  // true if reserved via direct mmap, not carved from the arena
	next  *Chunk // freelist / quarantine link
}
