package main

import "testing"

func TestCompareGoVersion(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.21", "1.21", 0},
		{"1.20", "1.21", -1},
		{"1.22", "1.21", 1},
		{"1.21.5", "1.21", 1},
		{"1.9", "1.21", -1},
	}
	for _, c := range cases {
		if got := compareGoVersion(c.a, c.b); got != c.want {
			t.Errorf("compareGoVersion(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestParseRunArgsOptions(t *testing.T) {
	opt, rest, err := parseRunArgs([]string{"-options", "redzone_size=32,stats=true", "./cmd/myapp"})
	if err != nil {
		t.Fatalf("parseRunArgs: %v", err)
	}
	if opt != "redzone_size=32:stats=true" {
		t.Errorf("opt = %q", opt)
	}
	if len(rest) != 1 || rest[0] != "./cmd/myapp" {
		t.Errorf("rest = %v", rest)
	}
}

func TestParseRunArgsNoOptions(t *testing.T) {
	opt, rest, err := parseRunArgs([]string{"./cmd/myapp"})
	if err != nil {
		t.Fatalf("parseRunArgs: %v", err)
	}
	if opt != "" {
		t.Errorf("opt = %q, want empty", opt)
	}
	if len(rest) != 1 {
		t.Errorf("rest = %v", rest)
	}
}
