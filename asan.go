// Package asan is the public entry point for the runtime: initialization,
// the hot-path memory-access checks, the allocator wrappers, and the
// global/thread registration hooks a compiler pass or manual
// instrumentation calls into.
//
// See doc.go for an overview and example_test.go for usage.
package asan

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/goasan/internal/asan/allocator"
	"github.com/kolkov/goasan/internal/asan/global"
	"github.com/kolkov/goasan/internal/asan/interceptor"
	"github.com/kolkov/goasan/internal/asan/options"
	"github.com/kolkov/goasan/internal/asan/poison"
	"github.com/kolkov/goasan/internal/asan/report"
	"github.com/kolkov/goasan/internal/asan/shadow"
	"github.com/kolkov/goasan/internal/asan/stackdepot"
	"github.com/kolkov/goasan/internal/asan/stats"
	"github.com/kolkov/goasan/internal/asan/thread"
)

var (
	initOnce sync.Once
	enabled  atomic.Bool

	opts options.Options

	shadowMap *shadow.Map
	alloc     *allocator.Allocator
	globals   *global.Registry
	threads   *thread.Registry
	reporter  *report.Reporter
	counters  stats.Stats
)

// Init initializes the runtime: reserves the shadow map and arena, and
// wires the allocator, global registry, thread registry and fault reporter
// together. Init is safe to call multiple times; only the first call has
// an effect.
//
// A program built with this library's instrumentation calls Init once at
// startup, normally as the first statement of main:
//
//	func main() {
//		asan.Init()
//		defer asan.Fini()
//		// ...
//	}
func Init() {
	initOnce.Do(func() {
		opts = options.FromEnv()

		m, err := shadow.Reserve(shadow.Config{
			Scale:     shadow.DefaultScale,
			ArenaSize: 256 << 20,
			Lazy:      opts.LazyShadow,
		})
		if err != nil {
			panic("asan: failed to reserve shadow memory: " + err.Error())
		}
		shadowMap = m
		alloc = allocator.New(m, allocator.Config{
			Redzone:              opts.RedzoneSize,
			QuarantineBytes:      opts.QuarantineSizeMB << 20,
			LargeMallocThreshold: opts.LargeMallocThreshold,
		})
		globals = global.NewRegistry(m, opts.RedzoneSize)
		threads = thread.NewRegistry()
		reporter = report.New(m, globals, threads, alloc)
		reporter.Verbosity = opts.Verbosity
		if opts.ExitCode != 0 {
			reporter.ExitCode = opts.ExitCode
		}

		enabled.Store(true)
		reporter.Logf(1, "initialized: redzone=%d quarantine=%dMB", opts.RedzoneSize, opts.QuarantineSizeMB)
	})
}

// Fini finalizes the runtime: prints accumulated statistics if
// GOASAN_OPTIONS enabled them. It does not release the shadow map, and the
// runtime stays enabled afterwards. A program normally runs this via defer
// right after Init.
func Fini() {
	if !enabled.Load() {
		return
	}
	if opts.PrintStats {
		counters.Print(reporter.Out)
	}
}

// CheckRead implements the compiler-inserted read barrier: verify that
// size bytes starting at addr are addressable, reporting and aborting if
// not.
//
//go:nosplit
func CheckRead(addr uintptr, size int) {
	if !enabled.Load() {
		return
	}
	reporter.Check(addr, size, report.Read)
}

// CheckWrite implements the compiler-inserted write barrier.
//
//go:nosplit
func CheckWrite(addr uintptr, size int) {
	if !enabled.Load() {
		return
	}
	reporter.Check(addr, size, report.Write)
}

// Malloc allocates n bytes, returning the payload address. An align (1 if
// unspecified) above the shadow granularity rounds the chunk's payload
// size up to a multiple of align; the returned address is not itself
// rounded to align. Panics if the runtime has not been initialized.
func Malloc(n, align uintptr) uintptr {
	mustBeEnabled()
	trace := stackdepot.Capture(2, opts.MallocContextSize)
	p, err := alloc.Malloc(n, align, trace)
	if err != nil {
		reporter.Checkf("allocation failed: %v", err)
		return 0
	}
	counters.RecordMalloc(n)
	return p
}

// Free releases the chunk at p. A double free or an invalid pointer is
// reported as a fault and aborts, matching spec-level "free is never
// silently tolerant of a bad pointer" behavior.
func Free(p uintptr) {
	mustBeEnabled()
	if p == 0 {
		return
	}
	trace := stackdepot.Capture(2, opts.MallocContextSize)
	if err := alloc.Free(p, trace); err != nil {
		reporter.Checkf("%v at 0x%x", err, p)
		return
	}
	counters.RecordFree(0)
}

// Realloc resizes the chunk at p to n bytes, following the C realloc
// contract: Realloc(0, n) allocates, Realloc(p, 0) frees.
func Realloc(p, n uintptr) uintptr {
	mustBeEnabled()
	trace := stackdepot.Capture(2, opts.MallocContextSize)
	newP, err := alloc.Realloc(p, n, trace)
	if err != nil {
		reporter.Checkf("realloc failed: %v", err)
		return 0
	}
	counters.RecordRealloc()
	return newP
}

// RegisterGlobal registers a compiler-emitted global variable so accesses
// past its end are reported as global-buffer-overflow rather than an
// unrelated heap or stack bug.
func RegisterGlobal(addr, size uintptr, name string) {
	mustBeEnabled()
	globals.Register(addr, size, name)
	if opts.ReportGlobals {
		reporter.Logf(0, "registered global '%s' at 0x%x, size %d", name, addr, size)
	}
}

// RegisterThread records a new thread/goroutine's stack extent so a
// stack-buffer-overflow or use-after-return can be attributed to it.
func RegisterThread(id uint64, stackBottom, stackTop uintptr, summary string) *thread.Thread {
	mustBeEnabled()
	t := thread.New(id, stackBottom, stackTop, summary)
	threads.Add(t)
	return t
}

// CurrentGoroutineID returns an identifier for the calling goroutine,
// suitable as the id argument to RegisterThread/UnregisterThread for a
// caller that has no identifier of its own to supply.
func CurrentGoroutineID() uint64 {
	return thread.CurrentGoroutineID()
}

// UnregisterThread removes a thread descriptor at goroutine exit.
func UnregisterThread(id uint64) {
	if !enabled.Load() {
		return
	}
	threads.Remove(id)
}

// StackRegion identifies which part of a stack frame's redzone layout a
// PoisonStack call is painting: the fixed species bytes a compiler pass
// (or a manual caller standing in for one) writes around and between a
// frame's local allocations.
type StackRegion int

const (
	// StackLeft marks the padding before a frame's first local.
	StackLeft StackRegion = iota
	// StackMid marks padding between two locals in the same frame.
	StackMid
	// StackRight marks the padding after a frame's last local.
	StackRight
	// StackAfterReturn marks a whole frame poisoned once its function has
	// returned, so a later access through a stale pointer into it is
	// reported as stack-use-after-return rather than a generic overflow.
	StackAfterReturn
)

func (r StackRegion) poisonByte() poison.Byte {
	switch r {
	case StackLeft:
		return poison.StackLeft
	case StackRight:
		return poison.StackRight
	case StackAfterReturn:
		return poison.StackAfterReturn
	default:
		return poison.StackMid
	}
}

// PoisonStack paints [addr, addr+size) as inaccessible stack redzone of
// the given region kind. A compiler pass emits one call per gap in a
// frame's layout on entry; a manual caller standing in for the compiler
// does the same around a local it wants bounds-checked.
func PoisonStack(addr, size uintptr, region StackRegion) {
	mustBeEnabled()
	shadowMap.Poison(addr, size, region.poisonByte())
}

// UnpoisonStack marks [addr, addr+size) addressable again, used both for
// a frame's live locals at entry and to clear StackAfterReturn poison
// if the same stack slot is reused by a later call.
func UnpoisonStack(addr, size uintptr) {
	mustBeEnabled()
	shadowMap.Unpoison(addr, size)
}

// Describe returns a human-readable description of addr, trying the
// global, stack, and heap registries in that order. Exposed for callers
// (e.g. the signal handler) that need to build their own report around an
// address the instrumented checks never saw directly.
func Describe(addr uintptr) string {
	mustBeEnabled()
	return reporter.Describe(addr)
}

// Guard runs fn with invalid-memory-access faults converted into an
// unknown-crash report instead of an immediate, unreported process
// termination. Only takes effect if GOASAN_OPTIONS has handle_segv=true
// (the default); otherwise fn just runs unguarded.
func Guard(fn func()) {
	mustBeEnabled()
	if !opts.HandleSEGV {
		fn()
		return
	}
	interceptor.Guard(reporter, fn)
}

func mustBeEnabled() {
	if !enabled.Load() {
		panic("asan: Init was never called")
	}
}
