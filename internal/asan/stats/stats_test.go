package stats

import (
	"strings"
	"testing"
)

func TestRecordAndPrint(t *testing.T) {
	var s Stats
	s.RecordMalloc(32)
	s.RecordMalloc(32)
	s.RecordMalloc(1024)
	s.RecordFree(32)
	s.RecordError()

	var buf strings.Builder
	s.Print(&buf)
	out := buf.String()

	if !strings.Contains(out, "3 mallocs") {
		t.Errorf("missing malloc count:\n%s", out)
	}
	if !strings.Contains(out, "1 frees") {
		t.Errorf("missing free count:\n%s", out)
	}
	if !strings.Contains(out, "1 errors reported") {
		t.Errorf("missing error count:\n%s", out)
	}
}

func TestLog2Bucket(t *testing.T) {
	cases := []struct {
		n    uintptr
		want int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 1}, {4, 2}, {1024, 10},
	}
	for _, c := range cases {
		if got := log2Bucket(c.n); got != c.want {
			t.Errorf("log2Bucket(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}
