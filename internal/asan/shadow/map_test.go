package shadow

import (
	"testing"

	"github.com/kolkov/goasan/internal/asan/poison"
)

func newTestMap(t *testing.T) *Map {
	t.Helper()
	m, err := Reserve(Config{Scale: DefaultScale, ArenaSize: 1 << 20})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	t.Cleanup(m.Release)
	return m
}

func TestMemToShadowBijectionModG(t *testing.T) {
	m := newTestMap(t)
	g := m.Granularity()
	base := m.arenaBase

	for _, d := range []uintptr{0, 1, g - 1, g, g + 1, 2 * g} {
		a, b := base, base+d
		same := (a >> m.scale) == (b >> m.scale)
		got := m.MemToShadow(a) == m.MemToShadow(b)
		if got != same {
			t.Errorf("d=%d: MemToShadow equal=%v, want %v", d, got, same)
		}
	}
}

func TestPoisonUnpoisonRoundTrip(t *testing.T) {
	m := newTestMap(t)
	g := m.Granularity()
	addr := m.arenaBase

	m.Poison(addr, 4*g, poison.HeapLeftRedzone)
	if m.IsAddressable(addr, int(g)) {
		t.Fatal("expected poisoned word to be inaccessible")
	}

	m.Unpoison(addr, 4*g)
	if !m.IsAddressable(addr, int(4*g)) {
		t.Fatal("expected unpoisoned range to be fully addressable")
	}
}

func TestPoisonTailPartial(t *testing.T) {
	m := newTestMap(t)
	g := m.Granularity()
	addr := m.arenaBase

	m.Unpoison(addr, g) // word starts clean
	valid := int(g) - 2
	m.PoisonTail(addr, valid)

	if !m.IsAddressable(addr, valid) {
		t.Fatalf("first %d bytes should be addressable", valid)
	}
	if m.IsAddressable(addr, valid+1) {
		t.Fatal("byte at the partial boundary should not be addressable")
	}
}

func TestIsAddressableStraddlesBoundary(t *testing.T) {
	m := newTestMap(t)
	g := m.Granularity()
	addr := m.arenaBase

	m.Unpoison(addr, g)
	m.Poison(addr+g, g, poison.HeapRightRedzone)

	// A k=2 access straddling the boundary between the clean word and
	// the poisoned word must not be addressable.
	if m.IsAddressable(addr+g-1, 2) {
		t.Fatal("access straddling redzone boundary should not be addressable")
	}
}

func TestSparseShadowForNonArenaAddress(t *testing.T) {
	m := newTestMap(t)
	g := m.Granularity()
	// An address far outside the arena (e.g. a stack or global address)
	// must still round-trip through Poison/IsAddressable via the sparse
	// fallback.
	addr := m.arenaBase + uintptr(len(m.arena)) + 100*g

	m.Poison(addr, g, poison.GlobalRedzone)
	if m.IsAddressable(addr, int(g)) {
		t.Fatal("expected poisoned sparse word to be inaccessible")
	}
	m.Unpoison(addr, g)
	if !m.IsAddressable(addr, int(g)) {
		t.Fatal("expected unpoisoned sparse word to be addressable")
	}
}
