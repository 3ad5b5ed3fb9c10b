// Package asan provides a pure-Go runtime implementing AddressSanitizer's
// core memory-safety checks: a shadow-memory model, an instrumented heap
// allocator with redzones and a free-quarantine, a global-variable
// registry, a thread/stack-frame registry, and a fault-reporting pipeline
// that always aborts rather than attempting to continue past a detected
// bug.
//
// # Quick Start
//
// A compiler pass or manually instrumented program calls Init once at
// startup and Fini at exit:
//
//	package main
//
//	import (
//		"github.com/kolkov/goasan"
//		"unsafe"
//	)
//
//	var counter int
//
//	func main() {
//		asan.Init()
//		defer asan.Fini()
//
//		asan.CheckWrite(uintptr(unsafe.Pointer(&counter)), 8)
//		counter = 42
//	}
//
// # API Overview
//
//   - Initialization and finalization: [Init], [Fini]
//   - Memory access checks: [CheckRead], [CheckWrite]
//   - Instrumented allocation: [Malloc], [Free], [Realloc]
//   - Registration hooks: [RegisterGlobal], [RegisterThread], [UnregisterThread]
//   - Fault description: [Describe]
//
// # What this runtime does not do
//
// It does not detect data races or uninitialized reads, it does not
// attempt to correct or recover from a detected bug (every report ends the
// process with the exitcode option's status, 1 by default), it is not a general-purpose throughput allocator, and it does
// not perform stack unwinding/symbolization, build-system integration, or
// compiler instrumentation itself — those are the job of the collaborating
// compiler pass and CLI tooling this runtime is designed to sit underneath.
//
// # Configuration
//
// Runtime behavior is tuned via the GOASAN_OPTIONS environment variable, a
// colon-separated key=value list (redzone_size, quarantine_size_mb,
// malloc_context_size, large_malloc_threshold, lazy_shadow, report_globals,
// handle_segv, stats, verbosity, exitcode). See package options.
package asan
