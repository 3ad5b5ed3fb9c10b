// Package shadow implements the virtual-memory shadow model: address-space
// reservation, the virtual-to-shadow mapping function, and the poison
// primitives built on top of it.
//
// Layout (spec §3): the address space a Map governs is partitioned into
// five contiguous regions — LowMem, LowShadow, ShadowGap, HighShadow,
// HighMem. A scale S (3 <= S <= 7, default 3) defines the shadow
// granularity G = 2^S application bytes per shadow byte. The mapping is
//
//	shadow(a) = (a >> S) + Offset
//
// purely arithmetic and branch-free, so the compiler (or, here, any Go
// caller) can inline it in two instructions; see map_test.go for the
// bijection-mod-G property this depends on.
//
// Real, process-wide address-space reservation the way the C runtime does
// it — mmap'ing a PROT_NONE hole across most of the 47-bit virtual address
// space — is not something a pure-Go library can safely attempt: arbitrary
// Go heap, stack, and runtime-owned addresses are not ours to protect, and
// colliding with the Go runtime's own mappings is fatal. Map therefore
// reserves two bounded, real OS-backed arenas (LowMem and HighMem); this
// library's own allocator carves chunks from LowMem only, and HighMem is
// reserved but unused. LowMem has real shadow bytes
// and a real PROT_NONE ShadowGap between their shadows (see reserve_linux.go
// and reserve_fallback.go). Addresses outside those arenas — registered
// globals and stack frames, whose storage the Go runtime owns — are
// shadowed through a sparse side table (see sparse.go) keyed by the same
// mem_to_shadow arithmetic; this is the one place a hashed lookup stands
// in for a table that cannot, in a managed runtime, be addressed directly.
package shadow
