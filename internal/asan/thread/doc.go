// Package thread implements the per-thread descriptor and the thread/stack
// registry used to localize stack-frame faults (spec §4.4).
//
// Each goroutine this library knows about has a Thread record tracking its
// stack extent and an optional frame finder: a callback that, given an
// address, returns the name of the stack frame that owns it and the
// access's offset within that frame. In a real compiler-instrumented
// binary the frame finder reads a string the compiler stamped next to the
// frame; a pure-Go caller instead registers one explicitly (see
// Thread.SetFrameFinder) the way it would register any other per-goroutine
// bookkeeping, and is free to parse a compiler-style descriptor string
// with ParseFrameDescriptor if it has one.
package thread
