package interceptor

import (
	"fmt"
	"testing"
)

type fakeDescriber struct {
	aborted bool
	msg     string
}

func (f *fakeDescriber) Describe(addr uintptr) string { return fmt.Sprintf("0x%x", addr) }

func (f *fakeDescriber) Checkf(format string, args ...any) {
	f.aborted = true
	f.msg = fmt.Sprintf(format, args...)
}

func TestGuardRecoversFaultPanic(t *testing.T) {
	d := &fakeDescriber{}
	Guard(d, func() {
		var p *int
		_ = *p //nolint:govet // deliberate nil dereference to exercise the fault path
	})
	if !d.aborted {
		t.Error("expected Guard to report the fault via Checkf")
	}
}

func TestGuardPassesThroughNormalReturn(t *testing.T) {
	d := &fakeDescriber{}
	ran := false
	Guard(d, func() { ran = true })
	if !ran {
		t.Error("fn should have run")
	}
	if d.aborted {
		t.Error("normal return should not report a fault")
	}
}

func TestGuardRepanicsNonFaultPanic(t *testing.T) {
	d := &fakeDescriber{}
	defer func() {
		if recover() == nil {
			t.Error("expected a non-error panic to propagate")
		}
	}()
	Guard(d, func() {
		panic("not a fault")
	})
}
