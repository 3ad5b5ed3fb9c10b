package report

import (
	"bytes"
	"strings"
	"testing"
	"unsafe"

	"github.com/kolkov/goasan/internal/asan/allocator"
	"github.com/kolkov/goasan/internal/asan/global"
	"github.com/kolkov/goasan/internal/asan/shadow"
	"github.com/kolkov/goasan/internal/asan/thread"
)

func uintptrOf(b *byte) uintptr {
	return uintptr(unsafe.Pointer(b))
}

func newTestReporter(t *testing.T) (*Reporter, *shadow.Map, *allocator.Allocator, *int) {
	t.Helper()
	m, err := shadow.Reserve(shadow.Config{Scale: shadow.DefaultScale, ArenaSize: 1 << 20})
	if err != nil {
		t.Fatalf("shadow.Reserve: %v", err)
	}
	t.Cleanup(m.Release)

	a := allocator.New(m, allocator.Config{Redzone: 16})
	g := global.NewRegistry(m, 32)
	th := thread.NewRegistry()

	r := New(m, g, th, a)
	var buf bytes.Buffer
	r.Out = &buf

	exitCode := -1
	r.Exit = func(code int) { exitCode = code }

	return r, m, a, &exitCode
}

func TestCheckSafeAccessDoesNotAbort(t *testing.T) {
	r, _, a, exitCode := newTestReporter(t)
	p, err := a.Malloc(16, 1, 0)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	r.Check(p, 16, Write)
	if *exitCode != -1 {
		t.Errorf("safe access called Exit(%d)", *exitCode)
	}
}

func TestCheckHeapOverflowAborts(t *testing.T) {
	r, _, a, exitCode := newTestReporter(t)
	p, err := a.Malloc(16, 1, 0)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	out := r.Out.(*bytes.Buffer)

	r.Check(p, 17, Read) // one byte past the allocation

	if *exitCode != 1 {
		t.Fatalf("exitCode = %d, want 1", *exitCode)
	}
	report := out.String()
	if !strings.Contains(report, "heap-buffer-overflow") {
		t.Errorf("report missing bug name:\n%s", report)
	}
	if !strings.Contains(report, "right of a 16-byte region") {
		t.Errorf("report missing heap description:\n%s", report)
	}
}

func TestCheckUseAfterFreeAborts(t *testing.T) {
	r, _, a, exitCode := newTestReporter(t)
	p, err := a.Malloc(8, 1, 0)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := a.Free(p, 0); err != nil {
		t.Fatalf("Free: %v", err)
	}

	r.Check(p, 1, Read)

	if *exitCode != 1 {
		t.Fatalf("exitCode = %d, want 1", *exitCode)
	}
	out := r.Out.(*bytes.Buffer).String()
	if !strings.Contains(out, "heap-use-after-free") {
		t.Errorf("report missing use-after-free bug name:\n%s", out)
	}
}

func TestCheckHeapOverflowOnPartialGranuleAborts(t *testing.T) {
	r, _, a, exitCode := newTestReporter(t)
	// 10 is not a multiple of the shadow granularity (G=8 at DefaultScale),
	// so the object's last granule holds a partial byte (value 2) rather
	// than a fully poisoned one. The overflow lands inside that granule.
	p, err := a.Malloc(10, 1, 0)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	out := r.Out.(*bytes.Buffer)

	r.Check(p+10, 1, Write)

	if *exitCode != 1 {
		t.Fatalf("exitCode = %d, want 1", *exitCode)
	}
	report := out.String()
	if !strings.Contains(report, "heap-buffer-overflow") {
		t.Errorf("report on partial-granule overflow should classify as heap-buffer-overflow, got:\n%s", report)
	}
	if strings.Contains(report, "unknown-crash") {
		t.Errorf("report misclassified partial-granule overflow as unknown-crash:\n%s", report)
	}
}

func TestDescribeGlobalTakesPrecedenceOverHeap(t *testing.T) {
	r, m, _, _ := newTestReporter(t)
	arena := m.Arena()
	addr := uintptrOf(&arena[0])
	r.Globals.Register(addr, 8, "counter")

	desc := r.Describe(addr + 8)
	if !strings.Contains(desc, "counter") {
		t.Errorf("Describe = %q, want a mention of global 'counter'", desc)
	}
}

func TestDuplicateReportsSuppressed(t *testing.T) {
	r, _, a, exitCode := newTestReporter(t)
	p, _ := a.Malloc(8, 1, 0)

	r.Check(p, 9, Read)
	first := r.Out.(*bytes.Buffer).Len()
	r.Check(p, 9, Read)
	second := r.Out.(*bytes.Buffer).Len()

	if second != first {
		t.Errorf("second identical fault should not print again: first=%d second=%d", first, second)
	}
	if *exitCode != 1 {
		t.Errorf("exitCode = %d, want 1", *exitCode)
	}
}
