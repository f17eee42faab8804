// Package board performs machine bring-up: CLI configuration, the
// machine-setting file, ELF loading, device wiring, CP0 reset values, and
// the run loop with cooperative signal handling.
package board

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"simmips/internal/cache"
	"simmips/internal/console"
	"simmips/internal/device"
	"simmips/internal/mips32"
	"simmips/internal/pipeline"
)

// MaxCyclesDefault is 2^63-1, the functional simulator's unbounded run cap.
const MaxCyclesDefault = uint64(1<<63 - 1)

// Config bundles everything a CLI command gathers from flags, the
// machine-setting file, and the object file before bring-up.
type Config struct {
	ObjectFile     string
	SettingsFile   string
	MaxCycles      uint64
	DebugLevel     int
	InstructionMix bool
	Multicycle     bool

	// pipeline-only
	Pipelined        bool
	Forward          bool
	LogPipeline      bool
	CacheSizeKB      int
	CacheWays        int
	CacheLineBytes   int
	CachePenalty     int
	CacheWriteback   bool
	CacheEnabled     bool

	Stdout io.Writer
}

// Board is the fully wired machine: CPU, memory map, optional pipeline and
// cache, optional console/devices, ready to run.
type Board struct {
	Cfg      Config
	Mem      *mips32.MainMemory
	MMap     *mips32.MemoryMap
	CPU      *mips32.CPU
	Pipe     *pipeline.Pipeline
	Cache    *cache.Cache
	Serial   *device.SerialIO
	IntCtl   *device.IntController
	TTY      *console.TTY
	NeedsTTY bool

	interrupted chan struct{}
	pipeLog     *os.File
}

// Bring-up builds a Board from cfg: parses the machine-setting file (if
// any), installs the resulting device map (or a default single-MAIN_MEMORY
// map), loads the object file, applies @reg overrides, and sets CP0 reset
// values when a CP0-requiring device was mapped.
func Bringup(cfg Config) (*Board, error) {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}

	b := &Board{Cfg: cfg, MMap: mips32.NewMemoryMap(), interrupted: make(chan struct{})}

	var settings *Settings
	if cfg.SettingsFile != "" {
		f, err := os.Open(cfg.SettingsFile)
		if err != nil {
			return nil, fmt.Errorf("open machine-setting file: %w", err)
		}
		defer f.Close()
		var diags []string
		settings, diags, err = ParseSettings(f)
		if err != nil {
			return nil, fmt.Errorf("parse machine-setting file: %w", err)
		}
		for _, d := range diags {
			log.Printf("machine-setting: %s", d)
		}
	}

	useCP0 := settings != nil && settings.UseCP0
	b.Mem = mips32.NewMainMemory(mips32.DefaultMemSize)

	// Both StepFunctional and the pipeline's Fetch (which itself just calls
	// StepFunctional) drive the memory controller through Read4BNow/
	// Write4BNow, which only resolve synchronously in through mode; the
	// pipeline models its own per-cycle timing on top via the latch/board
	// bookkeeping in internal/pipeline; buffer mode is never exercised by
	// this CPU, only by internal/mips32's own tests.
	b.CPU = mips32.NewCPU(useCP0, b.MMap, mips32.ThroughMode)
	b.CPU.DebugLevel = cfg.DebugLevel
	b.CPU.Logger = log.Default()

	if settings == nil || len(settings.Maps) == 0 {
		b.MMap.Add(0, b.Mem.Size(), b.Mem)
	} else {
		if err := b.installMaps(settings); err != nil {
			return nil, err
		}
	}

	if useCP0 {
		applyCP0ResetValues(b.CPU.CP0)
	}

	if cfg.ObjectFile != "" {
		loaded, err := LoadELF(cfg.ObjectFile, b.Mem)
		if err != nil {
			return nil, err
		}
		b.CPU.St.PC = loaded.Entry
		b.CPU.St.SetReg(29, mips32.DefaultMemSize-0x100) // sp
		if loaded.HasGP {
			b.CPU.St.SetReg(28, loaded.GP) // gp
		}
		if !useCP0 {
			b.CPU.St.SetReg(25, loaded.Entry) // t9 mirrors PC without CP0
		}
	}

	if settings != nil {
		for _, m := range settings.Mems {
			data, err := LoadRawFile(m.File)
			if err != nil {
				return nil, fmt.Errorf("@mem %s: %w", m.File, err)
			}
			b.Mem.WriteBytes(m.Addr, data)
		}
		for _, r := range settings.Regs {
			if r.Index < 0 {
				b.CPU.St.PC = r.Value
			} else {
				b.CPU.St.SetReg(uint8(r.Index), r.Value)
			}
		}
		b.NeedsTTY = settings.NeedConsole
	}

	if cfg.CacheEnabled {
		blockBits, setBits, err := cacheGeometry(cfg)
		if err != nil {
			return nil, err
		}
		b.Cache = cache.New(blockBits, setBits, cfg.CacheWays)
		b.Cache.WriteThrough = !cfg.CacheWriteback
		b.Cache.Penalty = cfg.CachePenalty
	}

	if cfg.Pipelined {
		b.Pipe = pipeline.New(b.CPU, cfg.Forward)
		if b.Cache != nil {
			b.Pipe.Cache = b.Cache
		}
		if cfg.LogPipeline {
			f, err := os.Create("pipe.log")
			if err != nil {
				return nil, fmt.Errorf("create pipe.log: %w", err)
			}
			b.Pipe.Log = f
			b.pipeLog = f
		}
	}

	if b.NeedsTTY {
		b.TTY = console.New()
		if err := b.TTY.EnableRaw(); err != nil {
			return nil, fmt.Errorf("enable raw console mode: %w", err)
		}
		if b.Serial != nil && b.TTY.IsTerminal() {
			if err := b.Serial.StartKeyboard(b.interrupted); err != nil {
				log.Printf("keyboard input unavailable: %v", err)
			}
		}
	}

	return b, nil
}

func (b *Board) installMaps(s *Settings) error {
	for _, m := range s.Maps {
		switch m.Device {
		case DeviceMainMemory:
			b.Mem = mips32.NewMainMemory(m.Size)
			b.MMap.Add(m.Addr, m.Size, b.Mem)
		case DeviceIsaIO:
			b.Serial = device.NewSerialIO(b.Cfg.Stdout)
			b.IntCtl = device.NewIntController(b.CPU.SetHWInterrupt)
			b.Serial.OnReceive(func() { b.IntCtl.Assert(0) })
			b.MMap.Add(m.Addr, m.Size, device.NewIsaIO(b.IntCtl, b.Serial))
		case DeviceIsaBus:
			b.MMap.Add(m.Addr, m.Size, isaBus{})
		case DeviceMieruIO:
			if b.Serial == nil {
				b.Serial = device.NewSerialIO(b.Cfg.Stdout)
			}
			b.MMap.Add(m.Addr, m.Size, b.Serial)
		default:
			return fmt.Errorf("unhandled device kind %q", m.Device)
		}
	}
	return nil
}

// isaBus is the bare catch-all device: reads return zero, writes discard.
type isaBus struct{}

func (isaBus) Read1B(uint32) uint8    { return 0 }
func (isaBus) Read2B(uint32) uint16   { return 0 }
func (isaBus) Read4B(uint32) uint32   { return 0 }
func (isaBus) Write1B(uint32, uint8)  {}
func (isaBus) Write2B(uint32, uint16) {}
func (isaBus) Write4B(uint32, uint32) {}
func (isaBus) Write8B(uint32, uint64) {}
func (isaBus) Step()                  {}

var _ mips32.Device = isaBus{}

func applyCP0ResetValues(c *mips32.COP0) {
	c.Status = mips32.StatusDefault
	c.PageMask = mips32.PageMaskDefault
	c.PRId = mips32.PRIdDefault
	c.Config = mips32.ConfigDefault
	c.Config1 = mips32.Config1Default
}

// cacheGeometry validates the -dcache-* sizing flags and derives the block
// and set address-bit widths. Non-power-of-two or non-divisible
// configurations fail bring-up.
func cacheGeometry(cfg Config) (blockBits, setBits uint, err error) {
	if !isPowerOfTwo(cfg.CacheLineBytes) {
		return 0, 0, fmt.Errorf("dcache-line %d is not a power of two", cfg.CacheLineBytes)
	}
	totalBytes := cfg.CacheSizeKB * 1024
	if totalBytes%cfg.CacheLineBytes != 0 {
		return 0, 0, fmt.Errorf("dcache-size %dKB is not a multiple of dcache-line %d", cfg.CacheSizeKB, cfg.CacheLineBytes)
	}
	totalBlocks := totalBytes / cfg.CacheLineBytes
	if cfg.CacheWays <= 0 || totalBlocks%cfg.CacheWays != 0 {
		return 0, 0, fmt.Errorf("dcache-way %d does not divide %d blocks evenly", cfg.CacheWays, totalBlocks)
	}
	nsets := totalBlocks / cfg.CacheWays
	if !isPowerOfTwo(nsets) {
		return 0, 0, fmt.Errorf("dcache geometry yields %d sets, not a power of two", nsets)
	}
	return uint(log2(uint(cfg.CacheLineBytes))), uint(log2(uint(nsets))), nil
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func log2(n uint) int {
	bits := 0
	for n > 1 {
		n >>= 1
		bits++
	}
	return bits
}

// StartSignalHandling installs a SIGINT/SIGTERM handler that cooperatively
// marks the board interrupted and restores the terminal.
func (b *Board) StartSignalHandling() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		if b.TTY != nil {
			b.TTY.Restore()
		}
		close(b.interrupted)
	}()
}

// Interrupted reports whether a signal has requested a cooperative stop.
func (b *Board) Interrupted() <-chan struct{} { return b.interrupted }

// Close releases the board's host-side resources: the terminal (restored
// out of raw mode) and the pipe.log file, if either was opened.
func (b *Board) Close() {
	if b.TTY != nil {
		b.TTY.Restore()
	}
	if b.pipeLog != nil {
		b.pipeLog.Close()
	}
}

// Run drives the CPU (functional, multicycle, or pipelined per cfg) until
// it halts, errors, hits MaxCycles, or is interrupted.
func (b *Board) Run() {
	max := b.Cfg.MaxCycles
	if max == 0 {
		max = MaxCyclesDefault
	}
	devices := b.MMap.Devices()
	for b.CPU.Running() && b.CPU.Cycles < max {
		select {
		case <-b.interrupted:
			return
		default:
		}
		if b.Pipe != nil {
			b.Pipe.ShiftStage()
		} else if b.Cfg.Multicycle {
			b.CPU.StepMulticycle()
		} else {
			b.CPU.StepFunctional()
		}
		for _, d := range devices {
			d.Step()
		}
	}
}

// PrintResult writes the final PC/cycle/instruction summary plus any
// pipeline, cache, and instruction-mix statistics.
func (b *Board) PrintResult(w io.Writer) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	fmt.Fprintf(bw, "pc=0x%08x cycles=%d instructions=%d\n", b.CPU.St.PC, b.CPU.Cycles, b.CPU.InstRet)
	if b.Pipe != nil {
		fmt.Fprintf(bw, "pipeline cycles=%d stalls=%d flushes=%d retired=%d\n",
			b.Pipe.Cycles, b.Pipe.Stalls, b.Pipe.Flushes, b.Pipe.Retired)
	}
	if b.Cache != nil {
		fmt.Fprintf(bw, "dcache accesses=%d hits=%d compulsory=%d capacity=%d conflict=%d writebacks=%d\n",
			b.Cache.Hits+b.Cache.Misses, b.Cache.Hits, b.Cache.Compulsory, b.Cache.Capacity, b.Cache.Conflict, b.Cache.Writebacks)
	}
	if b.Cfg.InstructionMix {
		PrintInstructionMix(bw, b.CPU.Mix)
	}
}
