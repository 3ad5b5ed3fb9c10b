package stackdepot

import (
	"strings"
	"testing"
)

func TestCaptureDeduplicates(t *testing.T) {
	Reset()
	capture := func() ID { return Capture(1, 0) }

	var ids [2]ID
	for i := range ids {
		ids[i] = capture() // one call site, reached twice
	}
	id1, id2 := ids[0], ids[1]
	if id1 == 0 {
		t.Fatal("expected a non-zero trace ID")
	}
	if id1 != id2 {
		t.Errorf("expected identical call sites to dedupe: %d != %d", id1, id2)
	}
	if got := Stats(); got != 1 {
		t.Errorf("Stats() = %d, want 1", got)
	}
}

func TestLookupUnknown(t *testing.T) {
	Reset()
	if tr := Lookup(0); tr != nil {
		t.Error("Lookup(0) should be nil")
	}
	if tr := Lookup(12345); tr != nil {
		t.Error("Lookup of unknown ID should be nil")
	}
}

func TestFormatNilTrace(t *testing.T) {
	var tr *Trace
	if got := tr.Format(); got == "" {
		t.Error("Format() on nil trace should not be empty")
	}
}

func TestFormatContainsCaller(t *testing.T) {
	Reset()
	id := Capture(1, 0)
	tr := Lookup(id)
	out := tr.Format()
	if out == "" {
		t.Fatal("expected non-empty formatted trace")
	}
	// Format elides this package's own frames, so the first frame shown is
	// the test's caller, the testing package's runner.
	if !strings.Contains(out, "testing.tRunner") {
		t.Errorf("formatted trace missing the caller frame:\n%s", out)
	}
}
