// Package device implements the memory-mapped peripherals: an interrupt
// controller that asserts CPU hardware interrupt lines, and a serial
// console reachable through the memory-mapped bus. Both satisfy
// mips32.Device so they can be installed into a mips32.MemoryMap via
// Board.
package device

import (
	"bufio"
	"io"
	"sync"

	"github.com/eiannone/keyboard"

	"simmips/internal/mips32"
)

// IntController is a minimal programmable interrupt controller: a bit mask
// of which lines are enabled, and a bit mask of which lines are currently
// asserted. Writing to offset 0 sets the enable mask; offset 4 reads the
// pending mask and offset 8 acknowledges (clears) bits in the pending
// mask.
type IntController struct {
	mu      sync.Mutex
	enable  uint32
	pending uint32

	raise func(line int, pending bool)
}

func NewIntController(raise func(line int, pending bool)) *IntController {
	return &IntController{raise: raise}
}

// Assert marks hardware line `line` (0-indexed peripheral line, mapped onto
// CP0 Cause.IP2..IP6) pending, notifying the CPU if the line is enabled.
func (ic *IntController) Assert(line int) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.pending |= 1 << uint(line)
	if ic.enable&(1<<uint(line)) != 0 && ic.raise != nil {
		ic.raise(line+2, true)
	}
}

func (ic *IntController) Read4B(addr uint32) uint32 {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	switch addr {
	case 0:
		return ic.enable
	case 4:
		return ic.pending
	}
	return 0
}

func (ic *IntController) Write4B(addr uint32, v uint32) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	switch addr {
	case 0:
		ic.enable = v
	case 8:
		ic.pending &^= v
		for line := 0; line < 5; line++ {
			if ic.pending&(1<<uint(line)) == 0 && ic.raise != nil {
				ic.raise(line+2, false)
			}
		}
	}
}

func (ic *IntController) Read1B(addr uint32) uint8      { return uint8(ic.Read4B(addr &^ 3)) }
func (ic *IntController) Read2B(addr uint32) uint16     { return uint16(ic.Read4B(addr &^ 3)) }
func (ic *IntController) Write1B(addr uint32, v uint8)  { ic.rmw4(addr, uint32(v), 0xFF) }
func (ic *IntController) Write2B(addr uint32, v uint16) { ic.rmw4(addr, uint32(v), 0xFFFF) }
func (ic *IntController) Write8B(addr uint32, v uint64) { ic.Write4B(addr, uint32(v)) }
func (ic *IntController) Step()                         {}

func (ic *IntController) rmw4(addr uint32, v, mask uint32) {
	base := addr &^ 3
	old := ic.Read4B(base)
	ic.Write4B(base, (old &^ mask) | (v & mask))
}

var _ mips32.Device = (*IntController)(nil)

// SerialIO is a one-byte-at-a-time memory-mapped console: offset 0 is the
// data register (write pushes a byte to Out; read pops the next buffered
// input byte or 0 if none is ready), offset 4 is a status register whose
// bit 0 reports input-available.
type SerialIO struct {
	mu  sync.Mutex
	Out io.Writer
	in  chan byte

	raiseRx func()
}

// NewSerialIO wires out as the console's output sink. Call StartKeyboard to
// feed interactive input from github.com/eiannone/keyboard, or feed In
// programmatically via Push (used by tests and non-interactive boards).
func NewSerialIO(out io.Writer) *SerialIO {
	return &SerialIO{Out: out, in: make(chan byte, 256)}
}

// Push enqueues a byte as if it had arrived from the keyboard.
func (s *SerialIO) Push(b byte) {
	select {
	case s.in <- b:
	default:
	}
	if s.raiseRx != nil {
		s.raiseRx()
	}
}

// OnReceive installs a callback invoked whenever a byte becomes available,
// used by Board to assert the serial receive interrupt line.
func (s *SerialIO) OnReceive(f func()) { s.raiseRx = f }

// StartKeyboard begins forwarding raw terminal keystrokes into the device's
// input buffer until stop is closed. Requires the caller to have already
// put the terminal into raw mode (see internal/console).
func (s *SerialIO) StartKeyboard(stop <-chan struct{}) error {
	if err := keyboard.Open(); err != nil {
		return err
	}
	go func() {
		defer keyboard.Close()
		for {
			select {
			case <-stop:
				return
			default:
			}
			ch, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			if key == keyboard.KeyCtrlC {
				return
			}
			if ch != 0 {
				s.Push(byte(ch))
			}
		}
	}()
	return nil
}

func (s *SerialIO) Read4B(addr uint32) uint32 {
	switch addr {
	case 0:
		select {
		case b := <-s.in:
			return uint32(b)
		default:
			return 0
		}
	case 4:
		if len(s.in) > 0 {
			return 1
		}
		return 0
	}
	return 0
}

func (s *SerialIO) Write4B(addr uint32, v uint32) {
	if addr == 0 && s.Out != nil {
		s.Out.Write([]byte{byte(v)})
	}
}

func (s *SerialIO) Read1B(addr uint32) uint8      { return uint8(s.Read4B(addr)) }
func (s *SerialIO) Read2B(addr uint32) uint16     { return uint16(s.Read4B(addr)) }
func (s *SerialIO) Write1B(addr uint32, v uint8)  { s.Write4B(addr, uint32(v)) }
func (s *SerialIO) Write2B(addr uint32, v uint16) { s.Write4B(addr, uint32(v)) }
func (s *SerialIO) Write8B(addr uint32, v uint64) { s.Write4B(addr, uint32(v)) }
func (s *SerialIO) Step()                         {}

var _ mips32.Device = (*SerialIO)(nil)

// NewBufferedSerialIO wraps a bufio.Writer so console output is flushed in
// batches.
func NewBufferedSerialIO(w *bufio.Writer) *SerialIO { return NewSerialIO(w) }

// IsaIO glues the interrupt controller and the serial console into the
// single ISA_IO region a machine-setting @map line names: the controller's
// registers sit in the first 16 bytes, the serial console's after that.
type IsaIO struct {
	Int    *IntController
	Serial *SerialIO
}

func NewIsaIO(ic *IntController, sio *SerialIO) *IsaIO { return &IsaIO{Int: ic, Serial: sio} }

const serialBase = 0x10

func (d *IsaIO) route(addr uint32) (mips32.Device, uint32) {
	if addr < serialBase {
		return d.Int, addr
	}
	return d.Serial, addr - serialBase
}

func (d *IsaIO) Read1B(addr uint32) uint8 {
	dev, off := d.route(addr)
	return dev.Read1B(off)
}

func (d *IsaIO) Read2B(addr uint32) uint16 {
	dev, off := d.route(addr)
	return dev.Read2B(off)
}

func (d *IsaIO) Read4B(addr uint32) uint32 {
	dev, off := d.route(addr)
	return dev.Read4B(off)
}

func (d *IsaIO) Write1B(addr uint32, v uint8) {
	dev, off := d.route(addr)
	dev.Write1B(off, v)
}

func (d *IsaIO) Write2B(addr uint32, v uint16) {
	dev, off := d.route(addr)
	dev.Write2B(off, v)
}

func (d *IsaIO) Write4B(addr uint32, v uint32) {
	dev, off := d.route(addr)
	dev.Write4B(off, v)
}

func (d *IsaIO) Write8B(addr uint32, v uint64) {
	dev, off := d.route(addr)
	dev.Write8B(off, v)
}

func (d *IsaIO) Step() {
	d.Int.Step()
	d.Serial.Step()
}

var _ mips32.Device = (*IsaIO)(nil)
