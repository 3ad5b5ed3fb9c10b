package asan_test

import (
	"fmt"
	"unsafe"

	"github.com/kolkov/goasan"
)

// Example demonstrates basic instrumented allocation and access checking.
func Example() {
	asan.Init()
	defer asan.Fini()

	p := asan.Malloc(8, 8)
	defer asan.Free(p)

	asan.CheckWrite(p, 8)
	*(*int64)(unsafe.Pointer(p)) = 42

	asan.CheckRead(p, 8)
	fmt.Println(*(*int64)(unsafe.Pointer(p)))

	// Output:
	// 42
}

// Example_globalRegistration shows registering a global so an overflow
// past its end is reported as global-buffer-overflow.
func Example_globalRegistration() {
	asan.Init()
	defer asan.Fini()

	var g [4]byte
	addr := uintptr(unsafe.Pointer(&g[0]))
	asan.RegisterGlobal(addr, uintptr(len(g)), "g")

	fmt.Println(asan.Describe(addr))

	// Output:
	// inside global 'g'
}
