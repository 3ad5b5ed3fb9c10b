package thread

import "testing"

func TestCurrentGoroutineIDNonZero(t *testing.T) {
	if id := CurrentGoroutineID(); id == 0 {
		t.Error("expected a non-zero goroutine ID for the calling goroutine")
	}
}

func TestParseGoroutineID(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"goroutine 1 [running]:\n", 1},
		{"goroutine 4242 [chan receive]:\n", 4242},
		{"not a banner", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseGoroutineID([]byte(tc.in)); got != tc.want {
			t.Errorf("parseGoroutineID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
