// Package global implements the global-variable registry (spec §4.3): a
// process-wide ordered map from address to descriptor, with idempotent
// registration and right-redzone poisoning.
package global

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kolkov/goasan/internal/asan/poison"
	"github.com/kolkov/goasan/internal/asan/shadow"
)

// Descriptor is one registered global (spec §3 "Global descriptor").
type Descriptor struct {
	Addr uintptr
	Size uintptr
	Name string
}

// Registry is the process-wide global-variable table.
type Registry struct {
	shadowMap *shadow.Map
	redzone   uintptr

	mu      sync.Mutex
	byAddr  map[uintptr]Descriptor
	ordered []uintptr // kept sorted; re-sorted by Register on each new address
}

// NewRegistry creates an empty registry that paints redzones through m,
// using redzone bytes of right-slack per global (the compiler, in the
// original ABI, is required to supply at least this much padding after
// each global; a pure-Go caller's RegisterGlobal contract is the same).
func NewRegistry(m *shadow.Map, redzone uintptr) *Registry {
	return &Registry{shadowMap: m, redzone: redzone, byAddr: make(map[uintptr]Descriptor)}
}

// Register inserts or idempotently re-registers a global and paints its
// right redzone. Registering the same (addr, size, name) twice leaves the
// shadow unchanged (spec §3, §9 "ordering hazard"/idempotence invariant);
// re-registering a *different* size or name at an already-known address is
// last-write-wins, matching "the runtime may be invoked once per
// translation unit" for identical args but still needing to cope with a
// stale rebuild overwriting a prior registration.
func (r *Registry) Register(addr, size uintptr, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byAddr[addr]; ok && prev == (Descriptor{Addr: addr, Size: size, Name: name}) {
		return // idempotent: identical re-registration, shadow already correct
	}

	if _, existed := r.byAddr[addr]; !existed {
		r.ordered = append(r.ordered, addr)
		sort.Slice(r.ordered, func(i, j int) bool { return r.ordered[i] < r.ordered[j] })
	}
	r.byAddr[addr] = Descriptor{Addr: addr, Size: size, Name: name}

	r.paintRedzone(addr, size)
}

// paintRedzone implements spec §4.3's painting rule: the region
// [addr+roundUp(size,G), addr+roundUp(size,G)+R) is 0xF9, and when size
// isn't a multiple of G the trailing partial shadow byte is set to the
// partial-redzone encoding.
func (r *Registry) paintRedzone(addr, size uintptr) {
	g := r.shadowMap.Granularity()
	rounded := shadow.RoundUpG(size, r.shadowMap.Scale())

	if rem := size % g; rem != 0 {
		r.shadowMap.PoisonTail(addr+size-rem, int(rem))
	} else if size > 0 {
		r.shadowMap.Unpoison(addr, size)
	}

	r.shadowMap.Poison(addr+rounded, r.redzone, poison.GlobalRedzone)
}

// Describe implements spec §4.3's describe(addr): a linear scan locating
// the global whose [addr-R, addr+roundUp(size,G)+R) contains addr, with an
// offset string suitable for a fault report.
func (r *Registry) Describe(addr uintptr) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.ordered {
		d := r.byAddr[key]
		rounded := shadow.RoundUpG(d.Size, r.shadowMap.Scale())
		lo := d.Addr - r.redzone
		hi := d.Addr + rounded + r.redzone
		if addr < lo || addr >= hi {
			continue
		}
		switch {
		case addr < d.Addr:
			return fmt.Sprintf("%d bytes to the left of global '%s'", d.Addr-addr, d.Name), true
		case addr < d.Addr+d.Size:
			return fmt.Sprintf("inside global '%s'", d.Name), true
		default:
			return fmt.Sprintf("%d bytes to the right of global '%s'", addr-(d.Addr+d.Size), d.Name), true
		}
	}
	return "", false
}

// Len reports the number of registered globals.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byAddr)
}
