package main

import (
	"fmt"
	"os"

	"golang.org/x/mod/modfile"
)

// minGoVersion is the lowest go.mod "go" directive this runtime supports:
// it depends on generic atomic.Pointer[T] and the typed atomics, added in
// 1.19, and its own go.mod declares 1.21; callers on an older toolchain get
// a clear compatibility error instead of a confusing build failure.
const minGoVersion = "1.21"

func checkCommand(args []string) {
	path := "go.mod"
	if len(args) > 0 {
		path = args[0]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goasan check: %v\n", err)
		os.Exit(1)
	}

	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goasan check: parsing %s: %v\n", path, err)
		os.Exit(1)
	}

	ok := true
	if f.Go == nil {
		fmt.Fprintf(os.Stderr, "goasan check: %s has no 'go' directive\n", path)
		ok = false
	} else if compareGoVersion(f.Go.Version, minGoVersion) < 0 {
		fmt.Fprintf(os.Stderr, "goasan check: %s requires go >= %s (go.mod has %s)\n",
			path, minGoVersion, f.Go.Version)
		ok = false
	}

	for _, req := range f.Require {
		if req.Mod.Path == "github.com/kolkov/goasan" {
			fmt.Printf("goasan check: runtime dependency found at %s\n", req.Mod.Version)
		}
	}

	if !ok {
		os.Exit(1)
	}
	fmt.Printf("goasan check: %s is compatible (go %s)\n", path, f.Go.Version)
}

// compareGoVersion compares two "go" directive version strings of the form
// "X.Y" or "X.Y.Z", returning -1, 0, or 1.
func compareGoVersion(a, b string) int {
	pa, pb := splitVersion(a), splitVersion(b)
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var va, vb int
		if i < len(pa) {
			va = pa[i]
		}
		if i < len(pb) {
			vb = pb[i]
		}
		if va != vb {
			if va < vb {
				return -1
			}
			return 1
		}
	}
	return 0
}

func splitVersion(v string) []int {
	var parts []int
	cur := 0
	started := false
	for _, r := range v {
		if r >= '0' && r <= '9' {
			cur = cur*10 + int(r-'0')
			started = true
			continue
		}
		if started {
			parts = append(parts, cur)
		}
		cur = 0
		started = false
	}
	if started {
		parts = append(parts, cur)
	}
	return parts
}
