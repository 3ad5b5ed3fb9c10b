package thread

import "runtime"

// CurrentGoroutineID returns an identifier for the calling goroutine,
// parsed from runtime.Stack's banner line ("goroutine 123 [running]:").
// There is no public runtime API for this, so every pure-Go race and
// sanitizer tool that needs a per-goroutine key falls back to parsing
// this line; a faster path exists only via an assembly stub reading the
// runtime's g struct at a hardcoded field offset, which breaks silently
// across Go point releases and was deliberately left out here (see
// DESIGN.md). This is slow enough (~1us) that callers should use it only
// at thread-registration boundaries, never on the per-access hot path.
func CurrentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return uint64(parseGoroutineID(buf[:n]))
}

// parseGoroutineID extracts the numeric ID from a "goroutine N ..." banner.
func parseGoroutineID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
