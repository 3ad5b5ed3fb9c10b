package report

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/kolkov/goasan/internal/asan/allocator"
	"github.com/kolkov/goasan/internal/asan/global"
	"github.com/kolkov/goasan/internal/asan/poison"
	"github.com/kolkov/goasan/internal/asan/shadow"
	"github.com/kolkov/goasan/internal/asan/stackdepot"
	"github.com/kolkov/goasan/internal/asan/thread"
)

// AccessKind distinguishes a read from a write access for reporting.
type AccessKind int

const (
	Read AccessKind = iota
	Write
)

func (k AccessKind) String() string {
	if k == Write {
		return "WRITE"
	}
	return "READ"
}

// Reporter ties the shadow map and the three address registries (globals,
// threads, heap) together into the single describe-and-abort pipeline
// every instrumented access and every signal handler funnels into (spec
// §4.5 "access check", §4.6 "fault reporting").
type Reporter struct {
	Shadow    *shadow.Map
	Globals   *global.Registry
	Threads   *thread.Registry
	Allocator *allocator.Allocator

	// Out receives formatted reports. Defaults to os.Stderr.
	Out io.Writer

	// Exit is called with a nonzero status after a report is printed.
	// Defaults to os.Exit; tests override it to observe the report
	// without killing the test binary.
	Exit func(code int)

	// ExitCode is the status passed to Exit after a report is printed
	// (spec §6 exitcode). Zero means DefaultExitCode.
	ExitCode int

	// Verbosity gates Logf: a Logf call at level L prints only when
	// Verbosity >= L, so level-0 lines always print (spec §6 verbosity).
	Verbosity int

	reported sync.Map // map[uintptr]struct{}, deduplicates by faulting address
}

// DefaultExitCode is the process exit status used after a report is
// printed, matching the upstream tool's own default.
const DefaultExitCode = 1

// New creates a Reporter. globals, threads and alloc may be nil, in which
// case Describe simply skips that source.
func New(m *shadow.Map, globals *global.Registry, threads *thread.Registry, alloc *allocator.Allocator) *Reporter {
	return &Reporter{
		Shadow:    m,
		Globals:   globals,
		Threads:   threads,
		Allocator: alloc,
		Out:       os.Stderr,
		Exit:      os.Exit,
		ExitCode:  DefaultExitCode,
	}
}

// exitCode returns r.ExitCode, or DefaultExitCode if it was left at its
// zero value (e.g. a Reporter built as a bare struct literal).
func (r *Reporter) exitCode() int {
	if r.ExitCode == 0 {
		return DefaultExitCode
	}
	return r.ExitCode
}

// Logf prints a progress/debug line to Out when Verbosity >= level, matching
// the upstream tool's own verbosity-gated diagnostic output. Unlike
// Checkf, this never aborts.
func (r *Reporter) Logf(level int, format string, args ...any) {
	if r.Verbosity < level {
		return
	}
	out := r.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "GoAsan: "+format+"\n", args...)
}

// Check implements the hot-path access check (spec §4.5): an access of
// size bytes at addr is safe if every byte in the range is addressable; if
// not, Check reports the fault and aborts the process. It never returns
// after an unsafe access.
//
//go:nosplit
func (r *Reporter) Check(addr uintptr, size int, kind AccessKind) {
	if r.Shadow.IsAddressable(addr, size) {
		return
	}
	r.reportAndAbort(addr, size, kind)
}

// BugReport is a fully described, ready-to-print fault.
type BugReport struct {
	Kind        poison.Kind
	AccessKind  AccessKind
	Addr        uintptr
	AccessSize  int
	FaultAddr   uintptr
	ShadowByte  poison.Byte
	Description string
	Trace       *stackdepot.Trace
	AllocTrace  *stackdepot.Trace
	FreeTrace   *stackdepot.Trace
}

// reportAndAbort builds a BugReport for an unsafe access, prints it, and
// calls Exit with the configured exit code. Identical (kind, faultAddr) pairs are reported once; every
// repeat is dropped silently, matching the upstream runtime's
// "don't spam duplicate crashes" default (the process is about to exit
// anyway, this only matters for callers that intercept Exit in tests).
func (r *Reporter) reportAndAbort(addr uintptr, size int, kind AccessKind) {
	fault := r.firstBadByte(addr, size)
	sb := r.Shadow.ReadByte(fault)
	bugKind := poison.Classify(sb)
	if sb.IsPartial() {
		// A partial byte only says "first k bytes addressable"; the
		// access landed past those k bytes within the same granule, so
		// the kind actually comes from the following granule's shadow
		// byte, i.e. shadow(addr)+1, not addr+1 (spec §4.6).
		g := r.Shadow.Granularity()
		nextGranule := fault - fault%g + g
		bugKind = poison.Classify(r.Shadow.ReadByte(nextGranule))
	}

	key := fault<<8 | uintptr(bugKind)
	if _, dup := r.reported.LoadOrStore(key, struct{}{}); dup {
		r.Exit(r.exitCode())
		return
	}

	br := BugReport{
		Kind:        bugKind,
		AccessKind:  kind,
		Addr:        addr,
		AccessSize:  size,
		FaultAddr:   fault,
		ShadowByte:  sb,
		Description: r.Describe(fault),
		Trace:       stackdepot.Lookup(stackdepot.Capture(3, 0)),
	}
	if r.Allocator != nil {
		if allocID, freeID, ok := r.Allocator.Traces(fault); ok {
			br.AllocTrace = stackdepot.Lookup(allocID)
			br.FreeTrace = stackdepot.Lookup(freeID)
		}
	}

	r.Format(br)
	r.Exit(r.exitCode())
}

// firstBadByte narrows a multi-byte access down to the first byte that
// fails the addressability rule, so the report points at the exact
// boundary rather than the start of a possibly-large access.
func (r *Reporter) firstBadByte(addr uintptr, size int) uintptr {
	for o := 0; o < size; o++ {
		a := addr + uintptr(o)
		if !r.Shadow.IsAddressable(a, 1) {
			return a
		}
	}
	return addr
}

// Describe implements spec §4.6's describe(addr): try the global registry,
// then the thread/stack registry, then the heap allocator, in that order,
// returning the first hit.
func (r *Reporter) Describe(addr uintptr) string {
	if r.Globals != nil {
		if s, ok := r.Globals.Describe(addr); ok {
			return s
		}
	}
	if r.Threads != nil {
		if s, ok := r.describeStack(addr); ok {
			return s
		}
	}
	if r.Allocator != nil {
		if s, ok := r.Allocator.DescribeHeapAddress(addr); ok {
			return s
		}
	}
	return "unknown address (not inside any tracked global, stack frame, or heap chunk)"
}

func (r *Reporter) describeStack(addr uintptr) (string, bool) {
	t := r.Threads.FindByStackAddress(addr)
	if t == nil {
		return "", false
	}
	if raw, offset, ok := t.FindFrame(addr); ok {
		if fd, ok := thread.ParseFrameDescriptor(raw); ok {
			if s, ok := fd.Describe(int64(offset)); ok {
				return fmt.Sprintf("%s in %s", s, t.Summary), true
			}
		}
	}
	return fmt.Sprintf("on the stack of %s", t.Summary), true
}

// Format writes br to r.Out in the upstream runtime's banner style.
func (r *Reporter) Format(br BugReport) {
	out := r.Out
	if out == nil {
		out = os.Stderr
	}

	fmt.Fprintln(out, "=================================================================")
	fmt.Fprintf(out, "ERROR: GoAsan: %s on address 0x%x at pc\n", br.Kind.BugName(), br.FaultAddr)
	fmt.Fprintf(out, "%s of size %d at 0x%x\n", br.AccessKind, br.AccessSize, br.Addr)
	fmt.Fprintln(out)

	if br.Trace != nil {
		fmt.Fprintf(out, "%s\n", br.Trace.Format())
	}

	fmt.Fprintf(out, "%s\n", br.Description)
	fmt.Fprintln(out)

	if br.AllocTrace != nil {
		fmt.Fprintln(out, "allocated by:")
		fmt.Fprint(out, br.AllocTrace.Format())
	}
	if br.FreeTrace != nil {
		fmt.Fprintln(out, "freed by:")
		fmt.Fprint(out, br.FreeTrace.Format())
	}

	fmt.Fprintln(out, "Shadow bytes around the buggy address:")
	fmt.Fprint(out, Dump(r.Shadow, br.FaultAddr))
	fmt.Fprintln(out, "=================================================================")
}

// CheckInvariant validates an internal invariant, aborting with a message
// if it fails. This is the library's own self-check path (e.g. a corrupted chunk
// header), distinct from the user-facing memory-access Check above.
func (r *Reporter) CheckInvariant(ok bool, format string, args ...any) {
	if ok {
		return
	}
	r.Checkf(format, args...)
}

// Checkf unconditionally reports an internal invariant violation (the
// message, the file and line of Checkf's caller, and the current stack)
// and aborts.
func (r *Reporter) Checkf(format string, args ...any) {
	out := r.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintln(out, "=================================================================")
	fmt.Fprintf(out, "ERROR: GoAsan: internal invariant violated: %s\n", fmt.Sprintf(format, args...))
	if _, file, line, ok := runtime.Caller(1); ok {
		fmt.Fprintf(out, "    at %s:%d\n", file, line)
	}
	fmt.Fprint(out, stackdepot.Lookup(stackdepot.Capture(2, 0)).Format())
	fmt.Fprintln(out, "=================================================================")
	r.Exit(r.exitCode())
}
