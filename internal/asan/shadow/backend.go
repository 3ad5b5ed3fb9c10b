package shadow

// vm is the operating-system reservation backend a Map uses to get real,
// page-backed memory for an arena and its shadow. Platform-specific files
// (reserve_linux.go, reserve_fallback.go) provide the implementation; this
// indirection keeps Map itself free of build tags.
type vm interface {
	// reserve allocates size bytes of fresh memory. If prot is
	// protNone, the pages are reserved but inaccessible (used for the
	// ShadowGap and, in lazy mode, for as-yet-uncommitted shadow); the
	// caller must call commit before touching them.
	reserve(size uintptr, prot protection) ([]byte, error)

	// commit makes a previously protNone region of b readable and
	// writable. b must be a sub-slice (or the whole) of a slice
	// returned by reserve.
	commit(b []byte) error

	// release returns memory to the OS.
	release(b []byte) error
}

// protection selects the initial page protection passed to reserve.
type protection int

const (
	protNone protection = iota
	protReadWrite
)

// newVM returns the platform reservation backend.
func newVM() vm { return platformVM{} }
