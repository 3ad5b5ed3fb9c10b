//go:build linux

package allocator

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// largeBacking reserves a chunk's raw bytes directly via mmap rather than
// carving it from the bump arena, the spec §4.2 "large allocation" path: a
// request whose rounded size reaches the allocator's large-malloc threshold
// gets its own mapping so it can be unmapped (not just freelisted) on eviction from
// quarantine.
func largeBacking(size uintptr) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("allocator: mmap %d bytes: %w", size, err)
	}
	return b, nil
}

func releaseLargeBacking(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("allocator: munmap %d bytes: %w", len(b), err)
	}
	return nil
}
