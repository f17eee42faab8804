package device

import (
	"bytes"
	"testing"
)

func TestSerialIOWriteReachesOutput(t *testing.T) {
	var out bytes.Buffer
	s := NewSerialIO(&out)
	for _, b := range []byte("ok\n") {
		s.Write4B(0, uint32(b))
	}
	if out.String() != "ok\n" {
		t.Fatalf("output = %q, want %q", out.String(), "ok\n")
	}
}

func TestSerialIOInputAndStatus(t *testing.T) {
	s := NewSerialIO(nil)
	if s.Read4B(4) != 0 {
		t.Fatalf("status should report no input available")
	}
	s.Push('a')
	if s.Read4B(4) != 1 {
		t.Fatalf("status should report input available after Push")
	}
	if got := s.Read4B(0); got != 'a' {
		t.Fatalf("data register = %#x, want 'a'", got)
	}
	if s.Read4B(0) != 0 {
		t.Fatalf("draining the buffer should read back zero")
	}
}

func TestIntControllerAssertRespectsEnableMask(t *testing.T) {
	var raised []int
	ic := NewIntController(func(line int, pending bool) {
		if pending {
			raised = append(raised, line)
		}
	})

	ic.Assert(0) // line disabled: pending latched but CPU not notified
	if len(raised) != 0 {
		t.Fatalf("disabled line must not reach the CPU, got %v", raised)
	}
	if ic.Read4B(4)&1 == 0 {
		t.Fatalf("pending bit should latch even while disabled")
	}

	ic.Write4B(0, 1) // enable line 0
	ic.Assert(0)
	if len(raised) != 1 || raised[0] != 2 {
		t.Fatalf("enabled line 0 should raise CPU line 2, got %v", raised)
	}

	ic.Write4B(8, 1) // acknowledge
	if ic.Read4B(4)&1 != 0 {
		t.Fatalf("acknowledge should clear the pending bit")
	}
}

func TestIsaIORoutesByOffset(t *testing.T) {
	var out bytes.Buffer
	ic := NewIntController(nil)
	s := NewSerialIO(&out)
	d := NewIsaIO(ic, s)

	d.Write4B(0, 0xFF) // controller enable mask
	if ic.Read4B(0) != 0xFF {
		t.Fatalf("low offsets should reach the interrupt controller")
	}
	d.Write4B(serialBase, 'x') // serial data register
	if out.String() != "x" {
		t.Fatalf("offsets past the controller window should reach the serial device, got %q", out.String())
	}
}
