// Package poison defines the fixed byte alphabet written into shadow memory
// to mark redzones and freed regions.
//
// Each shadow byte describes G = 2^Scale application bytes (see package
// shadow). A byte of 0x00 means all G bytes are addressable; 0x01..0x07
// means only the first k = value bytes are addressable (a "partial"
// redzone); any value >= 0x80 means all G bytes are poisoned, and the
// value itself identifies which kind of redzone is responsible. These
// values are a wire contract shared with the fault reporter: they must
// never change once pinned, or existing reports would silently misclassify.
package poison

// Byte is one shadow-memory byte: either an addressability count in
// 0x00..0x07, or a poison class code with the high bit set.
type Byte uint8

// Poison class codes. Values are pinned by spec; do not renumber.
const (
	HeapLeftRedzone  Byte = 0xFA
	HeapRightRedzone Byte = 0xFB
	HeapFreed        Byte = 0xFD // quarantined, not yet reused

	StackLeft        Byte = 0xF1
	StackMid         Byte = 0xF2
	StackRight       Byte = 0xF3
	StackAfterReturn Byte = 0xF4
	StackPartial     Byte = 0xF5

	GlobalRedzone Byte = 0xF9
)

// Addressable is the all-clear shadow byte: every byte of the described
// word may be read and written.
const Addressable Byte = 0x00

// IsPoisoned reports whether b marks the described word as entirely
// inaccessible (high bit set). Partial bytes (1..7) are not "poisoned" in
// this sense: the first k bytes are still addressable.
func (b Byte) IsPoisoned() bool {
	return b >= 0x80
}

// IsPartial reports whether b encodes a partial-redzone count: the first
// k = uint8(b) bytes of the described word are addressable, the rest are
// redzone.
func (b Byte) IsPartial() bool {
	return b > 0 && b < 0x80
}

// PartialCount returns the number of addressable leading bytes encoded by
// a partial shadow byte. Callers must check IsPartial first.
func (b Byte) PartialCount() int {
	return int(b)
}

// Kind names the bug category a poison byte belongs to, for use in reports
// and by callers deciding which description routine to try first.
type Kind int

const (
	KindNone Kind = iota
	KindHeapLeftRedzone
	KindHeapRightRedzone
	KindHeapFreed
	KindStackLeft
	KindStackMid
	KindStackRight
	KindStackAfterReturn
	KindStackPartial
	KindGlobalRedzone
	KindUnknown
)

// Classify maps a poison byte to its Kind. Non-poison bytes (0x00..0x7F)
// classify as KindNone.
func Classify(b Byte) Kind {
	switch {
	case !b.IsPoisoned():
		return KindNone
	case b == HeapLeftRedzone:
		return KindHeapLeftRedzone
	case b == HeapRightRedzone:
		return KindHeapRightRedzone
	case b == HeapFreed:
		return KindHeapFreed
	case b == StackLeft:
		return KindStackLeft
	case b == StackMid:
		return KindStackMid
	case b == StackRight:
		return KindStackRight
	case b == StackAfterReturn:
		return KindStackAfterReturn
	case b == StackPartial:
		return KindStackPartial
	case b == GlobalRedzone:
		return KindGlobalRedzone
	default:
		return KindUnknown
	}
}

// BugName returns the human-readable bug kind used in report banners, for
// a species byte already known to be poisoned (or a partial byte's
// following species byte, per the classification rule in spec §4.6).
func (k Kind) BugName() string {
	switch k {
	case KindHeapLeftRedzone, KindHeapRightRedzone:
		return "heap-buffer-overflow"
	case KindHeapFreed:
		return "heap-use-after-free"
	case KindStackLeft:
		return "stack-buffer-underflow"
	case KindStackRight, KindStackMid, KindStackPartial:
		return "stack-buffer-overflow"
	case KindStackAfterReturn:
		return "stack-use-after-return"
	case KindGlobalRedzone:
		return "global-buffer-overflow"
	default:
		return "unknown-crash"
	}
}

// PartialByteFor encodes a partial-redzone shadow byte for the given
// alphabet: k is the number of addressable leading bytes (1..G-1). Stack
// and global callers currently share the same 0x01..0x07 encoding as heap;
// kind is accepted for future alphabets that diverge and is unused today.
func PartialByteFor(_ Kind, k int) Byte {
	return Byte(k)
}
