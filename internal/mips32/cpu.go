package mips32

import "log"

// RunState is the CPU's run-state machine, collapsed to the subset the
// simulator's run loop needs to observe.
type RunState int

const (
	StateRunning RunState = iota
	StateWait
	StateHalt
	StateError
)

// syscall numbers for the minimal OS emulation used when CP0 is absent.
const (
	sysExit  = 4001
	sysWrite = 4004
	sysIoctl = 4054
)

// CPU is the functional/multicycle interpreter. It executes one instruction
// per StepFunctional call; StepMulticycle executes through the same
// semantic phases but charges one cycle per call. The pipeline engine (internal/pipeline) calls
// StepFunctional from its Fetch stage: fetch commits the instruction's
// architectural effects, and the later stages model timing only.
type CPU struct {
	St   State
	CP0  *COP0
	MMap *MemoryMap
	MC   *MemoryController

	UseCP0   bool
	State    RunState
	Cycles   uint64
	InstRet  uint64
	Mix      map[Op]uint64

	// Last decoded instruction and its pending physical address, read by
	// the pipeline's Fetch stage after a StepFunctional call.
	Inst         Instruction
	PendingPAddr uint32

	DebugLevel int
	Logger     *log.Logger

	// mcWait is the remaining stage count before StepMulticycle retires the
	// in-flight instruction.
	mcWait int
}

func NewCPU(useCP0 bool, mmap *MemoryMap, mode ControllerMode) *CPU {
	c := &CPU{
		UseCP0: useCP0,
		CP0:    NewCOP0(useCP0),
		MMap:   mmap,
		MC:     NewMemoryController(mmap, mode),
		Mix:    make(map[Op]uint64),
	}
	c.State = StateRunning
	return c
}

func (c *CPU) logf(level int, format string, args ...interface{}) {
	if c.Logger != nil && c.DebugLevel >= level {
		c.Logger.Printf(format, args...)
	}
}

// Running reports whether the CPU is still making forward progress.
func (c *CPU) Running() bool { return c.State == StateRunning || c.State == StateWait }

// execResult carries the per-instruction scratch the execute phase
// produces for the memory/writeback/setnpc phases.
type execResult struct {
	rd, rt      uint32
	hi, lo      uint32
	cond        bool
	npc         uint32
	vaddr       uint32
	writeRdCond bool
	storeData   uint32
	excOccurred bool
	excCode     int
	excRefill   bool

	// fatal, when non-empty, means the instruction cannot be completed at
	// all (unknown opcode, floating-point op with no CP0): the simulator
	// halts in StateError rather than routing through CP0.
	fatal string
}

// StepFunctional executes exactly one instruction, charging its full stage
// latency to Cycles immediately.
func (c *CPU) StepFunctional() {
	if !c.runOneInstruction() {
		return
	}
	extra := uint64(0)
	if c.Inst.IsLoadStore() {
		extra = memoryLatency
	}
	c.Cycles += uint64(c.Inst.Lat) + extra
}

// memoryLatency is the extra stage count step_multi charges a load/store
// beyond its base ALU latency, representing the memory-controller round
// trip.
const memoryLatency = 2

// StepMulticycle charges one cycle per call. A call with no wait pending
// executes and retires the next instruction through runOneInstruction; the
// following Lat-1 calls (plus memoryLatency for a load/store) only count
// cycles, so the next instruction is fetched once the full stage count has
// elapsed.
func (c *CPU) StepMulticycle() {
	if !c.Running() {
		return
	}
	if c.mcWait > 0 {
		c.mcWait--
		c.Cycles++
		return
	}
	if !c.runOneInstruction() {
		return
	}
	wait := c.Inst.Lat - 1
	if c.Inst.IsLoadStore() {
		wait += memoryLatency
	}
	if wait > 0 {
		c.mcWait = wait
	}
	c.Cycles++
}

// runOneInstruction performs the fetch/execute/memory/writeback/setnpc
// phases for the instruction at the current PC. It reports false if nothing
// was retired (wait state or interrupt delivery consumed the call instead).
func (c *CPU) runOneInstruction() bool {
	if c.State == StateWait {
		if c.CP0.PendingInterrupt() {
			c.deliverInterrupt()
		}
		return false
	}
	if !c.Running() {
		return false
	}
	if c.CP0.PendingInterrupt() {
		c.deliverInterrupt()
		return false
	}

	pc := c.St.PC
	paddr, excCode, refill, ok := c.CP0.Translate(pc, false)
	if !ok {
		vec := c.CP0.DoException(excCode, pc, pc, c.St.DelayNPC != 0, refill)
		c.St.PC = vec
		c.St.DelayNPC = 0
		return false
	}

	word, rok := c.MC.Read4BNow(paddr)
	if !rok {
		c.fatalf("fetch failed at 0x%08x", paddr)
		return false
	}

	in := Decode(word, pc)
	c.Inst = in
	c.Mix[in.Op]++
	c.logf(2, "0x%08x: %s", in.PC, in.Disassemble())

	res := c.execute(&in)

	if res.fatal != "" {
		c.fatalf("%s at pc=0x%08x", res.fatal, in.PC)
		return false
	}

	// Without CP0, only SYSCALL (already fully handled in execute) is
	// delivered; every other architectural exception is silently
	// suppressed rather than routed to a vector.
	if res.excOccurred && !c.UseCP0 {
		res.excOccurred = false
	}

	if !res.excOccurred && in.IsLoadStore() {
		c.memoryPhase(&in, &res)
		if res.excOccurred && !c.UseCP0 {
			res.excOccurred = false
		}
	}

	if !res.excOccurred {
		c.writeback(&in, &res)
	}

	c.setNextPC(&in, &res)
	c.InstRet++
	c.CP0.Step()
	return true
}

func (c *CPU) fatalf(format string, args ...interface{}) {
	c.State = StateError
	if c.Logger != nil {
		c.Logger.Printf("simulator error: "+format, args...)
	} else {
		log.Printf("simulator error: "+format, args...)
	}
}

func (c *CPU) deliverInterrupt() {
	c.State = StateRunning
	vec := c.CP0.DoException(ExcInt, c.St.PC, 0, c.St.DelayNPC != 0, false)
	c.St.PC = vec
	c.St.DelayNPC = 0
}

// SetHWInterrupt lets a device (via the board) assert/deassert an
// interrupt line without reaching into CP0 directly.
func (c *CPU) SetHWInterrupt(line int, pending bool) { c.CP0.SetHWInterrupt(line, pending) }

func (c *CPU) writeback(in *Instruction, r *execResult) {
	if in.Attr&WriteRD != 0 {
		c.St.SetReg(in.Rd, r.rd)
	}
	if in.Attr&WriteRDCond != 0 && r.writeRdCond {
		c.St.SetReg(in.Rd, r.rd)
	}
	if in.Attr&WriteRT != 0 {
		c.St.SetReg(in.Rt, r.rt)
	}
	if in.Attr&WriteRRA != 0 {
		c.St.SetReg(31, in.PC+8)
	}
	if in.Attr&WriteHI != 0 {
		c.St.HI = r.hi
	}
	if in.Attr&WriteLO != 0 {
		c.St.LO = r.lo
	}
	c.St.R[0] = 0
}

func (c *CPU) setNextPC(in *Instruction, r *execResult) {
	if r.excOccurred {
		inDelay := c.St.DelayNPC != 0
		vec := c.CP0.DoException(r.excCode, in.PC, r.vaddr, inDelay, r.excRefill)
		c.St.PC = vec
		c.St.DelayNPC = 0
		return
	}
	if c.St.DelayNPC != 0 {
		c.St.PC = c.St.DelayNPC
		c.St.DelayNPC = 0
		return
	}
	switch {
	case in.Attr&(Branch|BranchLikely) != 0 && r.cond:
		if r.npc == 0 {
			c.fatalf("branch to zero, pc=0x%08x", in.PC)
			return
		}
		c.St.PC = in.PC + 4
		c.St.DelayNPC = r.npc
	case in.Attr&BranchEret != 0 && r.cond:
		c.CP0.ModifyReg(RegStatus, statusEXL, 0)
		c.St.PC = r.npc
	case in.Attr&BranchLikely != 0 && !r.cond:
		c.St.PC = in.PC + 8
	default:
		c.St.PC = in.PC + 4
	}
	if in.Op == OpWAIT {
		c.State = StateWait
	}
}
