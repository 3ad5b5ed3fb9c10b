// Package stats accumulates allocator and reporting counters for the
// "PrintAccumulatedStats"-style summary printed at Fini; a fault report
// does not print it.
package stats

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Stats is the process-wide counter block. All fields are accessed
// atomically so hot-path callers never take a lock to bump a counter.
type Stats struct {
	Mallocs    atomic.Uint64
	Frees      atomic.Uint64
	Reallocs   atomic.Uint64
	LargeMmaps atomic.Uint64

	BytesAllocated atomic.Uint64
	BytesFreed     atomic.Uint64

	ErrorsReported atomic.Uint64

	// sizeLog2Hist[k] counts allocations whose rounded size fell in
	// [2^k, 2^(k+1)), the same log2-bucketed histogram upstream runtimes
	// print alongside total counts.
	sizeLog2Hist [histBuckets]atomic.Uint64
}

// RecordMalloc updates the counters for a successful allocation of
// roundedSize bytes.
func (s *Stats) RecordMalloc(roundedSize uintptr) {
	s.Mallocs.Add(1)
	s.BytesAllocated.Add(uint64(roundedSize))
	s.sizeLog2Hist[log2Bucket(roundedSize)].Add(1)
}

// RecordFree updates the counters for a free of roundedSize bytes.
func (s *Stats) RecordFree(roundedSize uintptr) {
	s.Frees.Add(1)
	s.BytesFreed.Add(uint64(roundedSize))
}

// RecordRealloc counts a realloc call. The allocation and free a realloc
// performs inside the Allocator are not passed to RecordMalloc or
// RecordFree.
func (s *Stats) RecordRealloc() {
	s.Reallocs.Add(1)
}

// RecordLargeMmap counts a large allocation that bypassed the freelist.
func (s *Stats) RecordLargeMmap() {
	s.LargeMmaps.Add(1)
}

// RecordError counts a reported fault.
func (s *Stats) RecordError() {
	s.ErrorsReported.Add(1)
}

const histBuckets = 32

func log2Bucket(n uintptr) int {
	if n == 0 {
		return 0
	}
	b := 0
	for n > 1 {
		n >>= 1
		b++
	}
	if b >= histBuckets {
		b = histBuckets - 1
	}
	return b
}

// Print writes a human-readable summary to w, in the style of the upstream
// runtime's accumulated-stats dump printed on abort or at exit.
func (s *Stats) Print(w io.Writer) {
	fmt.Fprintf(w, "Stats: %d mallocs, %d frees, %d reallocs, %d large mmaps\n",
		s.Mallocs.Load(), s.Frees.Load(), s.Reallocs.Load(), s.LargeMmaps.Load())
	fmt.Fprintf(w, "Stats: %d bytes allocated, %d bytes freed, %d errors reported\n",
		s.BytesAllocated.Load(), s.BytesFreed.Load(), s.ErrorsReported.Load())
	fmt.Fprintln(w, "Stats: malloc size histogram (size range: count)")
	for k, bucket := range s.sizeLog2Hist {
		n := bucket.Load()
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "  [%d, %d): %d\n", uintptr(1)<<k, uintptr(1)<<(k+1), n)
	}
}
