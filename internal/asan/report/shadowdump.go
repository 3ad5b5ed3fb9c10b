package report

import (
	"fmt"
	"strings"

	"github.com/kolkov/goasan/internal/asan/shadow"
)

// dumpWidth is the number of shadow bytes (i.e. G-aligned memory words)
// shown per row, and rowsAround how many rows surround the faulting
// word's row on each side. Matches the shape of the upstream runtime's shadow-byte
// dump, reduced to one row of context each side for a library with a much
// smaller typical arena.
const (
	dumpWidth   = 8
	rowsAround  = 1
	totalRows   = 1 + 2*rowsAround
)

// Dump renders the shadow bytes surrounding addr's G-aligned word, with
// the faulting word's row prefixed "=>" and the byte itself bracketed, the
// same presentation spec §4.6 describes for the shadow-byte dump.
func Dump(m *shadow.Map, addr uintptr) string {
	g := m.Granularity()
	base := addr &^ (g - 1)
	start := base - uintptr(rowsAround*dumpWidth)*g

	var b strings.Builder
	for row := 0; row < totalRows; row++ {
		rowStart := start + uintptr(row*dumpWidth)*g
		marker := "  "
		if base >= rowStart && base < rowStart+uintptr(dumpWidth)*g {
			marker = "=>"
		}
		fmt.Fprintf(&b, "%s0x%012x:", marker, rowStart)
		for col := 0; col < dumpWidth; col++ {
			wordAddr := rowStart + uintptr(col)*g
			sb := m.ReadByte(wordAddr)
			if wordAddr == base {
				fmt.Fprintf(&b, "[%02x]", byte(sb))
			} else {
				fmt.Fprintf(&b, " %02x ", byte(sb))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
