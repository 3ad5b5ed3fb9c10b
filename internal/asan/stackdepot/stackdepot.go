// Package stackdepot implements stack-trace storage and deduplication for
// allocation and free sites.
//
// The depot is a global store for stack traces that deduplicates identical
// stacks, keyed by a 64-bit hash. Every chunk header (spec §3) records an
// alloc-trace id and, once freed, a free-trace id; both are depot handles
// rather than copies of the PC array, so programs that allocate the same
// way from the same call site many times pay for one stored trace, not one
// per allocation.
//
// Design (matches the upstream runtime's own stack depot): fixed-size
// traces (MaxFrames PCs, capped cost per entry), FNV-1a hash for
// deduplication, a sync.Map keyed by that hash.
package stackdepot

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"unsafe"
)

// MaxFrames bounds the number of PCs captured per trace.
const MaxFrames = 16

// ID identifies a stack trace stored in the depot. The zero ID means "no
// trace captured" (e.g. malloc_context_size=0).
type ID uint64

// Trace is a captured, fixed-size stack trace.
type Trace struct {
	pc [MaxFrames]uintptr
	n  int
}

var depot sync.Map // map[ID]*Trace

// Capture captures the caller's stack (skipping skip frames above Capture
// itself) and stores it in the depot, returning its ID. maxFrames caps how
// many PCs are kept (the ASAN_OPTIONS malloc_context_size knob); passing 0
// or a value above MaxFrames captures MaxFrames.
func Capture(skip, maxFrames int) ID {
	if maxFrames <= 0 || maxFrames > MaxFrames {
		maxFrames = MaxFrames
	}
	var pcs [MaxFrames]uintptr
	n := runtime.Callers(skip+1, pcs[:maxFrames])
	if n == 0 {
		return 0
	}
	hash := hashPCs(pcs[:n])
	id := ID(hash)
	if id == 0 {
		id = 1 // reserve 0 for "no trace"
	}
	if _, exists := depot.Load(id); exists {
		return id
	}
	t := &Trace{n: n}
	copy(t.pc[:], pcs[:n])
	depot.Store(id, t)
	return id
}

// Lookup retrieves a previously captured trace, or nil if id is 0 or
// unknown.
func Lookup(id ID) *Trace {
	if id == 0 {
		return nil
	}
	v, ok := depot.Load(id)
	if !ok {
		return nil
	}
	return v.(*Trace)
}

func hashPCs(pcs []uintptr) uint64 {
	h := fnv.New64a()
	for _, pc := range pcs {
		b := (*[8]byte)(unsafe.Pointer(&pc))[:]
		_, _ = h.Write(b)
	}
	return h.Sum64()
}

// Format renders a trace the way fault reports print stacks: one function
// per line, file:line beneath it, runtime-internal frames elided.
func (t *Trace) Format() string {
	if t == nil || t.n == 0 {
		return "  <no stack available>\n"
	}
	frames := runtime.CallersFrames(t.pc[:t.n])
	var buf strings.Builder
	var i int
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}
		if strings.HasPrefix(frame.Function, "runtime.") ||
			strings.Contains(frame.Function, "internal/asan/") {
			if !more {
				break
			}
			continue
		}
		fmt.Fprintf(&buf, "    #%d %s\n", i, frame.Function)
		fmt.Fprintf(&buf, "        %s:%d +0x%x\n", frame.File, frame.Line, frame.PC&0xfff)
		i++
		if !more {
			break
		}
	}
	if buf.Len() == 0 {
		return "  <all frames internal>\n"
	}
	return buf.String()
}

// Reset clears the depot. Tests only.
func Reset() { depot = sync.Map{} }

// Stats reports the number of unique traces currently stored.
func Stats() (uniqueTraces int) {
	depot.Range(func(_, _ any) bool {
		uniqueTraces++
		return true
	})
	return uniqueTraces
}
