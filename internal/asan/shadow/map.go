package shadow

import (
	"fmt"
	"unsafe"

	"github.com/kolkov/goasan/internal/asan/poison"
)

// gapSize is the width of the PROT_NONE ShadowGap placed after LowShadow.
// Any address arithmetic that accidentally computes a shadow-of-shadow
// address lands here and traps instead of silently corrupting memory.
const gapSize = 1 << 16

// Config selects the granularity and arena size a Map reserves.
type Config struct {
	// Scale sets G = 2^Scale application bytes per shadow byte.
	// Zero means DefaultScale.
	Scale uint

	// ArenaSize is the size, in application bytes, of the LowMem arena
	// this library's allocator carves heap chunks from. It is rounded
	// up to a multiple of G.
	ArenaSize uintptr

	// Lazy selects lazy shadow commit: shadow pages for the arena start
	// PROT_NONE and are committed on first touch rather than up front.
	// See CommitRange.
	Lazy bool
}

// Map is the process-wide shadow-memory model: the address-space regions
// from spec §3 (LowMem, LowShadow, ShadowGap, HighShadow, HighMem), the
// arithmetic mapping between them, and the poison primitives built on it.
type Map struct {
	scale  uint
	offset uintptr

	arenaBase uintptr
	arena     []byte // LowMem

	shadowBase uintptr
	arenaShad  []byte // LowShadow

	gap []byte // ShadowGap (PROT_NONE)

	highShadow []byte // HighShadow (reserved, symmetric)
	highMem    []byte // HighMem (reserved, symmetric; allocator does not use it)

	sparse sparseShadow // globals/stack: addresses outside the arenas

	lazy bool
	vm   vm
}

// Reserve reserves the shadow regions and the LowMem/HighMem arenas
// described by cfg. This is the §4.1 reserve() operation.
func Reserve(cfg Config) (*Map, error) {
	scale := cfg.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	if scale < MinScale || scale > MaxScale {
		return nil, fmt.Errorf("shadow: scale %d out of range [%d,%d]", scale, MinScale, MaxScale)
	}
	arenaSize := cfg.ArenaSize
	if arenaSize == 0 {
		arenaSize = 64 << 20
	}
	arenaSize = RoundUpG(arenaSize, scale)

	m := &Map{scale: scale, lazy: cfg.Lazy, vm: newVM()}

	memProt := protReadWrite
	shadowProt := protReadWrite
	if cfg.Lazy {
		shadowProt = protNone
	}

	arena, err := m.vm.reserve(arenaSize, memProt)
	if err != nil {
		return nil, err
	}
	arenaShad, err := m.vm.reserve(arenaSize>>scale, shadowProt)
	if err != nil {
		return nil, err
	}
	gap, err := m.vm.reserve(gapSize, protNone)
	if err != nil {
		return nil, err
	}
	highShadow, err := m.vm.reserve(arenaSize>>scale, shadowProt)
	if err != nil {
		return nil, err
	}
	highMem, err := m.vm.reserve(arenaSize, memProt)
	if err != nil {
		return nil, err
	}

	m.arena = arena
	m.arenaShad = arenaShad
	m.gap = gap
	m.highShadow = highShadow
	m.highMem = highMem

	m.arenaBase = baseAddr(arena)
	m.shadowBase = baseAddr(arenaShad)

	// shadow(arenaBase) must land exactly at shadowBase.
	m.offset = m.shadowBase - (m.arenaBase >> scale)

	if !cfg.Lazy {
		zeroFill(arenaShad)
	}
	return m, nil
}

func baseAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func zeroFill(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Scale returns the configured shadow granularity exponent.
func (m *Map) Scale() uint { return m.scale }

// Granularity returns G = 2^Scale.
func (m *Map) Granularity() uintptr { return Granularity(m.scale) }

// Arena returns the LowMem region the allocator carves chunks from.
func (m *Map) Arena() []byte { return m.arena }

// MemToShadow implements shadow(a) = (a >> S) + OFFSET (spec §4.1).
//
//go:nosplit
func (m *Map) MemToShadow(addr uintptr) uintptr {
	return mapOffset(addr, m.scale, m.offset)
}

// inArenaShadow reports whether shadowAddr falls inside the real,
// dense LowShadow backing array, returning its byte index.
func (m *Map) inArenaShadow(shadowAddr uintptr) (int, bool) {
	if shadowAddr < m.shadowBase {
		return 0, false
	}
	idx := shadowAddr - m.shadowBase
	if idx >= uintptr(len(m.arenaShad)) {
		return 0, false
	}
	return int(idx), true
}

// byteAt returns the shadow byte describing the G-aligned word containing
// addr, creating a sparse cell on first touch if addr falls outside the
// arena.
func (m *Map) byteAt(addr uintptr) *byte {
	sa := m.MemToShadow(addr)
	if idx, ok := m.inArenaShadow(sa); ok {
		if m.lazy {
			m.ensureCommitted(idx)
		}
		return &m.arenaShad[idx]
	}
	return m.sparse.getOrCreate(sa)
}

// ensureCommitted commits the 4 MiB-aligned chunk of LowShadow containing
// byte index idx, the lazy-mode page-in described in spec §4.1. Safe to
// call redundantly; commit is idempotent under re-mprotect.
func (m *Map) ensureCommitted(idx int) {
	const chunk = 4 << 20
	start := (idx / chunk) * chunk
	end := start + chunk
	if end > len(m.arenaShad) {
		end = len(m.arenaShad)
	}
	_ = m.vm.commit(m.arenaShad[start:end])
}

// InArena reports whether addr falls inside the LowMem arena this Map's
// allocator carves chunks from.
func (m *Map) InArena(addr uintptr) bool {
	return addr >= m.arenaBase && addr < m.arenaBase+uintptr(len(m.arena))
}

// Poison sets the shadow byte(s) describing [addr, addr+size) to b. addr
// and size must both be multiples of G; this is the redzone/whole-word
// painting operation used by the allocator and global registry. Partial
// tails (size not a multiple of G) are handled by PoisonTail.
func (m *Map) Poison(addr, size uintptr, b poison.Byte) {
	g := m.Granularity()
	for off := uintptr(0); off < size; off += g {
		*m.byteAt(addr + off) = byte(b)
	}
}

// Unpoison is Poison(addr, size, poison.Addressable).
func (m *Map) Unpoison(addr, size uintptr) {
	m.Poison(addr, size, poison.Addressable)
}

// PoisonTail sets the single shadow byte covering the G-aligned word at
// addr to the partial-redzone encoding for validBytes (1..G-1) addressable
// leading bytes, per spec §3's "0x01..0x07" partial form.
func (m *Map) PoisonTail(addr uintptr, validBytes int) {
	*m.byteAt(addr) = byte(poison.PartialByteFor(poison.KindNone, validBytes))
}

// ReadByte returns the raw shadow byte describing the G-aligned word
// containing addr.
func (m *Map) ReadByte(addr uintptr) poison.Byte {
	return poison.Byte(*m.byteAt(addr))
}

// IsAddressable reports whether all k bytes starting at addr are
// addressable, per the per-byte rule in spec §4.1: a byte is addressable
// iff its word's shadow is 0x00, or the word's shadow is a partial count
// v and the byte's offset within the word is < v.
func (m *Map) IsAddressable(addr uintptr, k int) bool {
	g := m.Granularity()
	for o := 0; o < k; o++ {
		a := addr + uintptr(o)
		sb := m.ReadByte(a)
		switch {
		case sb == poison.Addressable:
			continue
		case sb.IsPartial():
			if uintptr(a%g) < uintptr(sb.PartialCount()) {
				continue
			}
			return false
		default:
			return false
		}
	}
	return true
}

// Release returns all reserved regions to the OS. Used by tests and by
// graceful shutdown paths; production processes normally never call this.
func (m *Map) Release() {
	_ = m.vm.release(m.arena)
	_ = m.vm.release(m.arenaShad)
	_ = m.vm.release(m.gap)
	_ = m.vm.release(m.highShadow)
	_ = m.vm.release(m.highMem)
	m.sparse.reset()
}
