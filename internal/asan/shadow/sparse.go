package shadow

import "sync"

// sparseShadow holds shadow bytes for addresses outside any arena this
// process reserved — registered globals and stack frames, whose backing
// storage belongs to the Go runtime rather than to this library. Adapted
// from the pack's sync.Map-based shadow cell cache: the access pattern is
// the same ("get or allocate a cell for this shadow address, then read or
// write it repeatedly"), only the payload changes from a happens-before
// epoch to a single poison byte.
//
// Thread Safety: all methods are safe for concurrent use. sync.Map is a
// deliberate choice here (not the arena's flat array) because the key
// space is sparse and unbounded: most of it is never touched.
type sparseShadow struct {
	cells sync.Map // map[uintptr]*byte, keyed by shadow address
}

func (s *sparseShadow) getOrCreate(shadowAddr uintptr) *byte {
	if v, ok := s.cells.Load(shadowAddr); ok {
		return v.(*byte)
	}
	b := new(byte)
	actual, _ := s.cells.LoadOrStore(shadowAddr, b)
	return actual.(*byte)
}

func (s *sparseShadow) get(shadowAddr uintptr) (byte, bool) {
	v, ok := s.cells.Load(shadowAddr)
	if !ok {
		return 0, false
	}
	return *v.(*byte), true
}

func (s *sparseShadow) set(shadowAddr uintptr, v byte) {
	*s.getOrCreate(shadowAddr) = v
}

// reset clears all sparse shadow cells. Used only by tests.
func (s *sparseShadow) reset() {
	s.cells = sync.Map{}
}
