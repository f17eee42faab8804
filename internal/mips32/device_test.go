package mips32

import "testing"

func TestMemoryMapFirstMatchWins(t *testing.T) {
	mmap := NewMemoryMap()
	a := NewMainMemory(0x1000)
	b := NewMainMemory(0x1000)
	mmap.Add(0, 0x1000, a)
	mmap.Add(0x800, 0x1000, b) // overlapping range; a must win inside [0,0x1000)

	dev, off := mmap.find(0x900)
	if dev == nil || dev.dev != Device(a) {
		t.Fatalf("overlapping lookup should return the first-added entry")
	}
	if off != 0x900 {
		t.Fatalf("offset = %#x, want 0x900", off)
	}

	dev, _ = mmap.find(0x2000)
	if dev != nil {
		t.Fatalf("address outside every range should find no device")
	}
}

func TestMemoryControllerThroughModeFinishesImmediately(t *testing.T) {
	mmap := NewMemoryMap()
	mem := NewMainMemory(0x1000)
	mmap.Add(0, 0x1000, mem)
	mc := NewMemoryController(mmap, ThroughMode)

	mem.Write4B(0x10, 0xDEADBEEF)
	slot := mc.Enqueue(0x10, 4, nil)
	if slot < 0 {
		t.Fatalf("enqueue failed")
	}
	st, v := mc.Result(slot)
	if st != StateFinish {
		t.Fatalf("through mode should finish synchronously, got state %v", st)
	}
	if uint32(v) != 0xDEADBEEF {
		t.Fatalf("value = %#x, want 0xDEADBEEF", v)
	}
}

func TestMemoryControllerOnlyOneInFlightSlot(t *testing.T) {
	mmap := NewMemoryMap()
	mem := NewMainMemory(0x1000)
	mmap.Add(0, 0x1000, mem)
	mc := NewMemoryController(mmap, BufferMode)

	s1 := mc.Enqueue(0, 4, nil)
	if s1 < 0 {
		t.Fatalf("first enqueue should succeed")
	}
	if s2 := mc.Enqueue(4, 4, nil); s2 != -1 {
		t.Fatalf("second enqueue while first is still pending should fail, got %d", s2)
	}
	mc.Step()
	st, _ := mc.Result(s1)
	if st != StateFinish {
		t.Fatalf("pending slot should finish after Step, got %v", st)
	}
	if s3 := mc.Enqueue(8, 4, nil); s3 < 0 {
		t.Fatalf("enqueue after the ring drains should succeed")
	}
}

func TestMemoryControllerFailureOnUnmappedAddress(t *testing.T) {
	mmap := NewMemoryMap()
	mc := NewMemoryController(mmap, ThroughMode)
	var failed uint32
	var sawFailure bool
	mc.SetFailureHandler(func(addr uint32) { failed = addr; sawFailure = true })

	slot := mc.Enqueue(0x9000, 4, nil)
	st, _ := mc.Result(slot)
	if st != StateFailure {
		t.Fatalf("state = %v, want StateFailure", st)
	}
	if !sawFailure || failed != 0x9000 {
		t.Fatalf("failure handler not invoked with the right address")
	}
}

func TestMemoryControllerEightByteReadSynthesis(t *testing.T) {
	mmap := NewMemoryMap()
	mem := NewMainMemory(0x1000)
	mmap.Add(0, 0x1000, mem)
	mc := NewMemoryController(mmap, ThroughMode)

	mem.Write4B(0x20, 0x11111111) // low word
	mem.Write4B(0x24, 0x22222222) // high word

	// An unaligned 8-byte read resolves against the containing aligned pair.
	slot := mc.Enqueue(0x23, 8, nil)
	st, v := mc.Result(slot)
	if st != StateFinish {
		t.Fatalf("8-byte read did not finish, state %v", st)
	}
	want := (uint64(0x22222222) << 32) | uint64(0x11111111)
	if v != want {
		t.Fatalf("8-byte read = %#x, want %#x (low word first)", v, want)
	}
}

func TestMainMemoryByteHalfWordRoundTrip(t *testing.T) {
	m := NewMainMemory(0x1000)
	m.Write1B(4, 0xAB)
	m.Write1B(5, 0xCD)
	m.Write1B(6, 0xEF)
	m.Write1B(7, 0x01)
	if got := m.Read4B(4); got != 0x01EFCDAB {
		t.Fatalf("word built from bytes = %#x, want 0x01efcdab", got)
	}
	if got := m.Read2B(6); got != 0x01EF {
		t.Fatalf("Read2B(6) = %#x, want 0x01ef", got)
	}
}

func TestMainMemoryRead8BComposesLowWordFirst(t *testing.T) {
	m := NewMainMemory(0x1000)
	m.Write4B(0x10, 0x11111111) // low word
	m.Write4B(0x14, 0x22222222) // high word
	got := m.Read8B(0x10)
	want := (uint64(0x22222222) << 32) | uint64(0x11111111)
	if got != want {
		t.Fatalf("Read8B = %#x, want %#x", got, want)
	}
}

func TestMainMemoryLazyPageIsZeroFilled(t *testing.T) {
	m := NewMainMemory(0x2000)
	if got := m.Read4B(0x1800); got != 0 {
		t.Fatalf("untouched page should read zero, got %#x", got)
	}
}
