package allocator

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/kolkov/goasan/internal/asan/poison"
	"github.com/kolkov/goasan/internal/asan/shadow"
	"github.com/kolkov/goasan/internal/asan/stackdepot"
)

// ErrInvalidFree is returned by Free and Realloc when p does not address a
// chunk this Allocator handed out, or addresses one already past its
// use-after-free quarantine window (spec §4.2 "invalid free").
var ErrInvalidFree = errors.New("allocator: invalid or double free")

// DefaultRedzone is the byte width painted on both sides of every chunk
// (spec §3 "Heap chunk": "left redzone... at least redzone_size bytes").
const DefaultRedzone = 16

// DefaultLargeMallocThreshold is the rounded payload size, in bytes, at or
// above which an allocation bypasses the size-classed freelist and gets its own
// backing mapping, matching the largest bucket the freelist supports.
const DefaultLargeMallocThreshold = uintptr(1) << maxClassShift

// Config parameterizes an Allocator.
type Config struct {
	// Redzone is the left/right redzone width in bytes. Zero means
	// DefaultRedzone.
	Redzone uintptr

	// QuarantineBytes is the quarantine's byte budget. Zero means
	// DefaultQuarantineBytes.
	QuarantineBytes uintptr

	// LargeMallocThreshold is the rounded payload size, in bytes, at or
	// above which an allocation bypasses the size-classed freelist (spec §6
	// large_malloc_threshold). Zero means DefaultLargeMallocThreshold; a
	// value above it is clamped down, since no bucket exists past
	// maxClassShift regardless of what a caller configures.
	LargeMallocThreshold uintptr
}

// Allocator is the instrumented heap: Malloc/Free/Realloc plus
// DescribeHeapAddress, all routed through a shadow.Map for poisoning (spec
// §4.2).
type Allocator struct {
	shadowMap      *shadow.Map
	redzone        uintptr
	largeThreshold uintptr

	buckets [maxClassShift + 1]bucket
	index   *chunkIndex
	quar    *quarantine

	arenaMu  sync.Mutex
	arenaOff uintptr

	liveMu sync.Mutex
	order  []uintptr // sorted chunk start addresses (left redzone start), for Describe
	byAddr map[uintptr]*Chunk
}

// New creates an Allocator that carves chunks from m's arena.
func New(m *shadow.Map, cfg Config) *Allocator {
	redzone := cfg.Redzone
	if redzone == 0 {
		redzone = DefaultRedzone
	}
	threshold := cfg.LargeMallocThreshold
	if threshold == 0 || threshold > DefaultLargeMallocThreshold {
		threshold = DefaultLargeMallocThreshold
	}
	return &Allocator{
		shadowMap:      m,
		redzone:        redzone,
		largeThreshold: threshold,
		index:          newChunkIndex(),
		quar:           newQuarantine(cfg.QuarantineBytes),
		byAddr:         make(map[uintptr]*Chunk),
	}
}

// Malloc implements spec §4.2's Allocate(n, align): reserve a chunk of at
// least n bytes, paint its redzones and payload shadow, and return the
// payload address. An align above G rounds the payload size up to a
// multiple of align; the payload address itself is not rounded to align:
// it lies one redzone width past the start of the chunk's backing bytes.
func (a *Allocator) Malloc(n, align uintptr, trace stackdepot.ID) (uintptr, error) {
	if align == 0 {
		align = 1
	}
	g := a.shadowMap.Granularity()
	payloadSize := n
	if payloadSize == 0 {
		payloadSize = 1
	}
	rounded := shadow.RoundUpG(payloadSize, a.shadowMap.Scale())
	if align > g {
		rounded = (rounded + align - 1) / align * align
	}

	class := -1
	if rounded < a.largeThreshold {
		class = classFor(rounded)
	}

	var c *Chunk
	if class >= 0 {
		rounded = classSize(class)
		if cached := a.buckets[class].pop(); cached != nil {
			c = cached
		} else {
			raw, base, err := a.carve(rounded)
			if err != nil {
				return 0, err
			}
			c = &Chunk{raw: raw, Payload: base + a.redzone, class: class}
		}
	} else {
		raw, err := largeBacking(a.redzone*2 + rounded)
		if err != nil {
			return 0, err
		}
		base := uintptr(unsafe.Pointer(&raw[0]))
		c = &Chunk{raw: raw, Payload: base + a.redzone, class: -1, large: true}
	}

	c.Size = n
	c.Align = align
	c.AllocTrace = trace
	c.FreeTrace = 0
	c.OwnerTID = 0
	c.State = Allocated
	c.next = nil

	a.paint(c, rounded, g)

	a.index.Store(c.Payload, c)
	a.addLive(c)

	return c.Payload, nil
}

// carve bump-allocates raw+redzone bytes from the arena for a size-classed
// chunk. The arena is never reused byte-for-byte by two live chunks: once
// exhausted, carve fails rather than wrapping, matching spec §9's "the
// arena is a fixed reservation, not a growable heap" tradeoff of this
// adaptation (see the package's shadow-model documentation for why a
// bounded arena stands in for "most of the 64-bit address space").
func (a *Allocator) carve(payload uintptr) (raw []byte, base uintptr, err error) {
	total := a.redzone*2 + payload
	a.arenaMu.Lock()
	defer a.arenaMu.Unlock()
	arena := a.shadowMap.Arena()
	if a.arenaOff+total > uintptr(len(arena)) {
		return nil, 0, fmt.Errorf("allocator: arena exhausted (need %d more bytes)", total)
	}
	raw = arena[a.arenaOff : a.arenaOff+total]
	base = uintptr(unsafe.Pointer(&raw[0]))
	a.arenaOff += total
	return raw, base, nil
}

// paint sets the chunk's shadow bytes: left redzone, payload (addressable
// up to Size, partial tail, then redzone), and right redzone.
func (a *Allocator) paint(c *Chunk, rounded, g uintptr) {
	a.shadowMap.Poison(c.Payload-a.redzone, a.redzone, poison.HeapLeftRedzone)

	if rem := c.Size % g; c.Size > 0 && rem != 0 {
		full := c.Size - rem
		if full > 0 {
			a.shadowMap.Unpoison(c.Payload, full)
		}
		a.shadowMap.PoisonTail(c.Payload+full, int(rem))
	} else if c.Size > 0 {
		a.shadowMap.Unpoison(c.Payload, c.Size)
	}
	if tailStart := shadow.RoundUpG(c.Size, a.shadowMap.Scale()); tailStart < rounded {
		a.shadowMap.Poison(c.Payload+tailStart, rounded-tailStart, poison.HeapRightRedzone)
	}

	a.shadowMap.Poison(c.Payload+rounded, a.redzone, poison.HeapRightRedzone)
}

// Free implements spec §4.2's Free(p): validate, poison the whole chunk as
// freed, and enqueue it in the quarantine rather than returning it to the
// freelist immediately.
func (a *Allocator) Free(p uintptr, trace stackdepot.ID) error {
	c := a.index.Load(p)
	if c == nil {
		return ErrInvalidFree
	}
	if c.State != Allocated {
		return ErrInvalidFree
	}

	c.State = Quarantined
	c.FreeTrace = trace

	rounded := classSize(c.class)
	if c.large {
		rounded = uintptr(len(c.raw)) - 2*a.redzone
	}
	a.shadowMap.Poison(c.Payload, rounded, poison.HeapFreed)

	for _, evicted := range a.quar.push(c) {
		a.evict(evicted)
	}
	return nil
}

// evict permanently retires a chunk that has aged out of the quarantine:
// size-classed chunks go back on their freelist for reuse (still indexed,
// since the address is still arena-owned), large chunks are unmapped and
// dropped from both the index and the live set, matching this library's
// resolution of the "does a large allocation's unmap happen on free or on
// quarantine eviction" question in favor of eviction (spec open question).
func (a *Allocator) evict(c *Chunk) {
	if c.large {
		a.index.Delete(c.Payload)
		a.removeLive(c.Payload)
		_ = releaseLargeBacking(c.raw)
		return
	}
	c.State = Freed
	a.buckets[c.class].push(c)
}

// Realloc implements spec §4.2's Realloc(p, n): realloc(nil, n) behaves as
// Malloc, realloc(p, 0) behaves as Free, and the general case copies
// min(old size, n) bytes into a fresh chunk and frees the old one.
func (a *Allocator) Realloc(p, n uintptr, trace stackdepot.ID) (uintptr, error) {
	if p == 0 {
		return a.Malloc(n, 1, trace)
	}
	if n == 0 {
		return 0, a.Free(p, trace)
	}

	c := a.index.Load(p)
	if c == nil || c.State != Allocated {
		return 0, ErrInvalidFree
	}

	newP, err := a.Malloc(n, c.Align, trace)
	if err != nil {
		return 0, err
	}
	oldSlice := a.payloadSlice(c)
	newC := a.index.Load(newP)
	newSlice := a.payloadSlice(newC)
	copy(newSlice, oldSlice)

	if err := a.Free(p, trace); err != nil {
		return 0, err
	}
	return newP, nil
}

// payloadSlice returns the live [0, Size) view of c's payload within its
// backing array.
func (a *Allocator) payloadSlice(c *Chunk) []byte {
	return c.raw[a.redzone : a.redzone+c.Size]
}

// DescribeHeapAddress implements spec §4.6's heap branch of describe(addr):
// find the chunk whose [leftRedzoneStart, rightRedzoneEnd) contains addr
// and report the offset and state, or report "false" if addr is not in any
// known chunk's vicinity (a completely wild pointer).
func (a *Allocator) DescribeHeapAddress(addr uintptr) (string, bool) {
	a.liveMu.Lock()
	defer a.liveMu.Unlock()

	i := sort.Search(len(a.order), func(i int) bool { return a.order[i] > addr })
	if i == 0 {
		return "", false
	}
	c := a.byAddr[a.order[i-1]]
	rounded := classSize(c.class)
	if c.large {
		rounded = uintptr(len(c.raw)) - 2*a.redzone
	}
	lo := c.Payload - a.redzone
	hi := c.Payload + rounded + a.redzone
	if addr < lo || addr >= hi {
		return "", false
	}

	switch {
	case addr < c.Payload:
		return fmt.Sprintf("%d bytes to the left of a %d-byte region, %s", c.Payload-addr, c.Size, c.State), true
	case addr < c.Payload+c.Size:
		return fmt.Sprintf("inside a %d-byte region, %s", c.Size, c.State), true
	default:
		return fmt.Sprintf("%d bytes to the right of a %d-byte region, %s", addr-(c.Payload+c.Size), c.Size, c.State), true
	}
}

// Traces returns the allocation and free stack-depot handles for the chunk
// covering addr, for use by fault reports. ok is false if addr is not in
// any known chunk's vicinity.
func (a *Allocator) Traces(addr uintptr) (allocTrace, freeTrace stackdepot.ID, ok bool) {
	a.liveMu.Lock()
	defer a.liveMu.Unlock()

	i := sort.Search(len(a.order), func(i int) bool { return a.order[i] > addr })
	if i == 0 {
		return 0, 0, false
	}
	c := a.byAddr[a.order[i-1]]
	rounded := classSize(c.class)
	if c.large {
		rounded = uintptr(len(c.raw)) - 2*a.redzone
	}
	lo := c.Payload - a.redzone
	hi := c.Payload + rounded + a.redzone
	if addr < lo || addr >= hi {
		return 0, 0, false
	}
	return c.AllocTrace, c.FreeTrace, true
}

func (a *Allocator) addLive(c *Chunk) {
	a.liveMu.Lock()
	defer a.liveMu.Unlock()
	key := c.Payload - a.redzone
	if _, exists := a.byAddr[key]; !exists {
		a.order = append(a.order, key)
		sort.Slice(a.order, func(i, j int) bool { return a.order[i] < a.order[j] })
	}
	a.byAddr[key] = c
}

func (a *Allocator) removeLive(payload uintptr) {
	a.liveMu.Lock()
	defer a.liveMu.Unlock()
	key := payload - a.redzone
	delete(a.byAddr, key)
	for i, k := range a.order {
		if k == key {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// QuarantineBytes reports the quarantine's current occupancy, exposed for
// stats reporting.
func (a *Allocator) QuarantineBytes() uintptr {
	return a.quar.Bytes()
}
