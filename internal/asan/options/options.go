// Package options parses the runtime's environment-variable configuration,
// the GOASAN_OPTIONS analogue of the upstream ASAN_OPTIONS string: a list
// of key=value pairs separated by colons, commas or whitespace, read once
// at Init.
package options

import (
	"os"
	"strconv"
	"strings"
	"unicode"
)

// EnvVar names the environment variable this package reads.
const EnvVar = "GOASAN_OPTIONS"

// minRedzoneSize is RedzoneSize's mandatory floor; an override below it
// is ignored rather than silently honored.
const minRedzoneSize = 32

// Options holds every tunable the runtime reads at startup. Zero-valued
// fields take the documented defaults; Parse never returns an error for an
// unrecognized key; it is silently ignored, matching upstream's tolerance
// for options meant for a different build.
type Options struct {
	// RedzoneSize is the heap redzone width in bytes.
	RedzoneSize uintptr

	// QuarantineSizeMB is the quarantine budget in megabytes.
	QuarantineSizeMB uintptr

	// MallocContextSize caps how many stack frames Capture keeps per
	// allocation/free trace. 0 means the package default.
	MallocContextSize int

	// LargeMallocThreshold is the rounded payload size, in bytes, at or
	// above which an allocation bypasses the size-classed freelist and gets its own
	// backing mapping.
	LargeMallocThreshold uintptr

	// LazyShadow enables lazy (PROT_NONE, commit-on-touch) shadow pages
	// instead of eagerly committing the whole arena shadow.
	LazyShadow bool

	// ReportGlobals prints each global as it is registered, for
	// debugging a missing-redzone report.
	ReportGlobals bool

	// HandleSEGV enables Guard's fault interception (via
	// runtime/debug.SetPanicOnFault, not an OS signal handler — see
	// internal/asan/interceptor), classifying an in-process invalid
	// memory access as an "unknown-crash" report instead of letting the
	// Go runtime print its own fatal error.
	HandleSEGV bool

	// PrintStats prints allocator statistics at Fini. A fault report does
	// not print them.
	PrintStats bool

	// Verbosity controls how much startup/teardown logging is printed.
	Verbosity int

	// ExitCode is the process exit status used after a report is printed.
	ExitCode int
}

// Defaults returns the runtime's built-in defaults, chosen to match the
// upstream tool's own defaults where this library implements the
// equivalent feature.
func Defaults() Options {
	return Options{
		RedzoneSize:          128,
		QuarantineSizeMB:     256,
		MallocContextSize:    30,
		LargeMallocThreshold: 1 << 24,
		LazyShadow:           false,
		ReportGlobals:        false,
		HandleSEGV:           true,
		PrintStats:           false,
		Verbosity:            0,
		ExitCode:             1,
	}
}

// FromEnv parses EnvVar, falling back to Defaults() for anything unset.
func FromEnv() Options {
	return Parse(os.Getenv(EnvVar), Defaults())
}

// Parse parses a GOASAN_OPTIONS-style string ("key=value:key=value"; colons,
// commas and whitespace all separate pairs) on top of
// base, returning the merged Options. Malformed entries (no '=', or a value
// that fails to parse for its field's type) are skipped rather than
// treated as fatal: a typo in an options string must never itself crash
// the program it is meant to protect.
func Parse(s string, base Options) Options {
	o := base
	if s == "" {
		return o
	}
	isSep := func(r rune) bool { return r == ':' || r == ',' || unicode.IsSpace(r) }
	for _, pair := range strings.FieldsFunc(s, isSep) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		applyOne(&o, strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return o
}

func applyOne(o *Options, key, value string) {
	switch key {
	case "redzone_size":
		if n, err := strconv.ParseUint(value, 10, 64); err == nil && n >= minRedzoneSize {
			o.RedzoneSize = uintptr(n)
		}
	case "quarantine_size_mb":
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			o.QuarantineSizeMB = uintptr(n)
		}
	case "malloc_context_size":
		if n, err := strconv.Atoi(value); err == nil {
			o.MallocContextSize = n
		}
	case "large_malloc_threshold":
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			o.LargeMallocThreshold = uintptr(n)
		}
	case "lazy_shadow":
		if b, err := strconv.ParseBool(value); err == nil {
			o.LazyShadow = b
		}
	case "report_globals":
		if b, err := strconv.ParseBool(value); err == nil {
			o.ReportGlobals = b
		}
	case "handle_segv":
		if b, err := strconv.ParseBool(value); err == nil {
			o.HandleSEGV = b
		}
	case "stats":
		if b, err := strconv.ParseBool(value); err == nil {
			o.PrintStats = b
		}
	case "verbosity":
		if n, err := strconv.Atoi(value); err == nil {
			o.Verbosity = n
		}
	case "exitcode":
		if n, err := strconv.Atoi(value); err == nil {
			o.ExitCode = n
		}
	}
}
