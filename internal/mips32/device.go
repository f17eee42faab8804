package mips32

// Device is the capability set a memory-mapped peripheral must provide.
// The memory map holds the interface value directly. Sized accesses a
// particular device does not support should return zero / accept and
// discard the write.
type Device interface {
	Read1B(addr uint32) uint8
	Read2B(addr uint32) uint16
	Read4B(addr uint32) uint32
	Write1B(addr uint32, v uint8)
	Write2B(addr uint32, v uint16)
	Write4B(addr uint32, v uint32)
	Write8B(addr uint32, v uint64)
	Step()
}

// mapEntry is one (base, size, device) triple in the frozen address-range
// list.
type mapEntry struct {
	base, size uint32
	dev        Device
}

// MemoryMap is an ordered, linear-scanned address-range list; the first
// entry whose [base, base+size) contains the address wins lookup. The
// sequence is frozen once bring-up finishes adding entries.
type MemoryMap struct {
	entries []mapEntry
}

func NewMemoryMap() *MemoryMap { return &MemoryMap{} }

// Add appends a device covering [base, base+size). Order matters: the
// first matching entry wins lookup.
func (m *MemoryMap) Add(base, size uint32, dev Device) {
	m.entries = append(m.entries, mapEntry{base, size, dev})
}

func (m *MemoryMap) find(addr uint32) (*mapEntry, uint32) {
	for i := range m.entries {
		e := &m.entries[i]
		if addr-e.base < e.size {
			return e, addr - e.base
		}
	}
	return nil, 0
}

func (m *MemoryMap) Devices() []Device {
	devs := make([]Device, len(m.entries))
	for i, e := range m.entries {
		devs[i] = e.dev
	}
	return devs
}

// Controller state machine.
type ctrlState int

const (
	StateNone ctrlState = iota
	StatePending
	StateFinish
	StateFailure
)

type ctrlOp int

const (
	OpRead ctrlOp = iota
	OpWrite
)

type mcRequest struct {
	state ctrlState
	op    ctrlOp
	addr  uint32
	size  int
	data  uint64
}

// ControllerMode selects whether enqueue immediately steps (through mode)
// or requires an explicit Step call per cycle (buffer mode). The board
// builds every CPU, functional or pipelined, in through mode.
type ControllerMode int

const (
	ThroughMode ControllerMode = iota
	BufferMode
)

const numMCSlots = 2

// MemoryController is the 2-slot ring buffer request queue mediating all
// CPU<->device access. Usable depth is 1: at most one request is in
// flight at any point.
type MemoryController struct {
	mmap       *MemoryMap
	mode       ControllerMode
	head, tail int
	slots      [numMCSlots]mcRequest

	onFailure func(addr uint32)
}

func NewMemoryController(mmap *MemoryMap, mode ControllerMode) *MemoryController {
	return &MemoryController{mmap: mmap, mode: mode}
}

// SetFailureHandler installs a diagnostic callback invoked when Step
// cannot find a device for the pending address.
func (mc *MemoryController) SetFailureHandler(f func(addr uint32)) { mc.onFailure = f }

// Enqueue appends a read (data == nil) or write (data != nil, its low
// `size` bytes used) transaction. Returns the slot id, or -1 if the ring
// is full (only one in-flight request is allowed).
func (mc *MemoryController) Enqueue(addr uint32, size int, data *uint64) int {
	if (mc.tail-mc.head+numMCSlots)%numMCSlots == 1 {
		return -1
	}
	ret := mc.head
	s := &mc.slots[mc.head]
	s.state = StatePending
	s.addr = addr
	s.size = size
	if data != nil {
		s.op = OpWrite
		s.data = *data
	} else {
		s.op = OpRead
	}
	mc.head = (mc.head + 1) % numMCSlots
	if mc.mode == ThroughMode {
		mc.Step()
	}
	return ret
}

// Step services the tail slot if it is pending.
func (mc *MemoryController) Step() {
	s := &mc.slots[mc.tail]
	if s.state != StatePending {
		return
	}
	dev, off := mc.mmap.find(s.addr)
	if dev == nil {
		s.state = StateFailure
		if mc.onFailure != nil {
			mc.onFailure(s.addr)
		}
		mc.tail = (mc.tail + 1) % numMCSlots
		return
	}
	if s.op == OpRead {
		switch s.size {
		case 1:
			s.data = uint64(dev.dev.Read1B(off))
		case 2:
			s.data = uint64(dev.dev.Read2B(off))
		case 4:
			s.data = uint64(dev.dev.Read4B(off))
		case 8:
			// Synthesized from two aligned 4-byte reads, low half first.
			// This is a memory-model decision, not a device capability.
			base := (s.addr &^ 7) - dev.base
			lo := dev.dev.Read4B(base)
			hi := dev.dev.Read4B(base + 4)
			s.data = (uint64(hi) << 32) | uint64(lo)
		default:
			s.state = StateFailure
		}
	} else {
		switch s.size {
		case 1:
			dev.dev.Write1B(off, uint8(s.data))
		case 2:
			dev.dev.Write2B(off, uint16(s.data))
		case 4:
			dev.dev.Write4B(off, uint32(s.data))
		case 8:
			dev.dev.Write8B(off, s.data)
		default:
			s.state = StateFailure
		}
	}
	if s.state != StateFailure {
		s.state = StateFinish
	}
	mc.tail = (mc.tail + 1) % numMCSlots
}

// Result reports the state/value of the given slot id.
func (mc *MemoryController) Result(slot int) (ctrlState, uint64) {
	s := &mc.slots[slot]
	return s.state, s.data
}

// Read4BNow is a convenience used by the interpreter: enqueue-and-step a
// synchronous 4-byte read. Only meaningful in through mode (in buffer mode
// the request is still pending when its result is read, so this reports
// failure); the pipeline reaches it through CPU.StepFunctional.
func (mc *MemoryController) Read4BNow(addr uint32) (uint32, bool) {
	slot := mc.Enqueue(addr, 4, nil)
	if slot < 0 {
		return 0, false
	}
	st, v := mc.Result(slot)
	return uint32(v), st == StateFinish
}

// Write4BNow is the write counterpart of Read4BNow.
func (mc *MemoryController) Write4BNow(addr uint32, v uint32) bool {
	d := uint64(v)
	slot := mc.Enqueue(addr, 4, &d)
	if slot < 0 {
		return false
	}
	st, _ := mc.Result(slot)
	return st == StateFinish
}
