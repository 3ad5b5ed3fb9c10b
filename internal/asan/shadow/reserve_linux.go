//go:build linux

package shadow

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// platformVM reserves real memory via mmap/mprotect/munmap, the same
// primitives the upstream C runtime uses for its shadow regions. This
// mirrors the guard-page pattern in use elsewhere in the Go ecosystem for
// catching out-of-bounds accesses (e.g. a single trailing PROT_NONE page
// after a buffer); here the same calls reserve whole shadow regions
// instead of a single page.
type platformVM struct{}

func (platformVM) reserve(size uintptr, prot protection) ([]byte, error) {
	p := unix.PROT_READ | unix.PROT_WRITE
	if prot == protNone {
		p = unix.PROT_NONE
	}
	b, err := unix.Mmap(-1, 0, int(size), p, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("shadow: mmap %d bytes: %w", size, err)
	}
	return b, nil
}

func (platformVM) commit(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("shadow: mprotect commit %d bytes: %w", len(b), err)
	}
	return nil
}

func (platformVM) release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("shadow: munmap %d bytes: %w", len(b), err)
	}
	return nil
}
