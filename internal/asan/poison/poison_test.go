package poison

import "testing"

func TestIsPoisoned(t *testing.T) {
	cases := []struct {
		name string
		b    Byte
		want bool
	}{
		{"addressable", Addressable, false},
		{"partial one", Byte(1), false},
		{"partial max", Byte(7), false},
		{"heap left redzone", HeapLeftRedzone, true},
		{"heap right redzone", HeapRightRedzone, true},
		{"heap freed", HeapFreed, true},
		{"global redzone", GlobalRedzone, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.b.IsPoisoned(); got != tc.want {
				t.Errorf("Byte(%#x).IsPoisoned() = %v, want %v", tc.b, got, tc.want)
			}
		})
	}
}

func TestPartialCount(t *testing.T) {
	for k := 1; k < 8; k++ {
		b := Byte(k)
		if !b.IsPartial() {
			t.Fatalf("Byte(%d).IsPartial() = false, want true", k)
		}
		if got := b.PartialCount(); got != k {
			t.Errorf("Byte(%d).PartialCount() = %d, want %d", k, got, k)
		}
	}
}

func TestClassifyAndBugName(t *testing.T) {
	cases := []struct {
		b    Byte
		kind Kind
		bug  string
	}{
		{Addressable, KindNone, "unknown-crash"},
		{HeapLeftRedzone, KindHeapLeftRedzone, "heap-buffer-overflow"},
		{HeapRightRedzone, KindHeapRightRedzone, "heap-buffer-overflow"},
		{HeapFreed, KindHeapFreed, "heap-use-after-free"},
		{StackLeft, KindStackLeft, "stack-buffer-underflow"},
		{StackMid, KindStackMid, "stack-buffer-overflow"},
		{StackRight, KindStackRight, "stack-buffer-overflow"},
		{StackAfterReturn, KindStackAfterReturn, "stack-use-after-return"},
		{StackPartial, KindStackPartial, "stack-buffer-overflow"},
		{GlobalRedzone, KindGlobalRedzone, "global-buffer-overflow"},
	}
	for _, tc := range cases {
		kind := Classify(tc.b)
		if kind != tc.kind {
			t.Errorf("Classify(%#x) = %v, want %v", tc.b, kind, tc.kind)
		}
		if got := kind.BugName(); got != tc.bug {
			t.Errorf("Classify(%#x).BugName() = %q, want %q", tc.b, got, tc.bug)
		}
	}
}
