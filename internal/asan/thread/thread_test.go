package thread

import "testing"

func TestRegistryFindByStackAddress(t *testing.T) {
	r := NewRegistry()
	t1 := New(1, 0x1000, 0x2000, "goroutine 1")
	t2 := New(2, 0x5000, 0x6000, "goroutine 2")
	r.Add(t1)
	r.Add(t2)

	if got := r.FindByStackAddress(0x1500); got != t1 {
		t.Errorf("expected t1, got %v", got)
	}
	if got := r.FindByStackAddress(0x5500); got != t2 {
		t.Errorf("expected t2, got %v", got)
	}
	if got := r.FindByStackAddress(0x3000); got != nil {
		t.Errorf("expected nil for address outside any stack, got %v", got)
	}
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	r.Add(New(1, 0, 0, "g1"))
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	r.Remove(1)
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Remove", r.Len())
	}
	if r.Get(1) != nil {
		t.Error("Get after Remove should be nil")
	}
}

func TestThreadFindFrame(t *testing.T) {
	th := New(1, 0, 0, "g1")
	if _, _, ok := th.FindFrame(0x1234); ok {
		t.Fatal("expected no frame finder installed")
	}
	th.SetFrameFinder(func(addr uintptr) (string, uintptr, bool) {
		return "main.f 1 0 8 3 buf ", addr - 0x1000, true
	})
	desc, off, ok := th.FindFrame(0x1008)
	if !ok || desc == "" || off != 8 {
		t.Errorf("FindFrame = (%q, %d, %v)", desc, off, ok)
	}
}
