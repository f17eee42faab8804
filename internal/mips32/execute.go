package mips32

import (
	"math/bits"
	"os"

	"simmips/internal/utils"
)

// execute implements the ALU/branch/jump/trap semantics of every decoded
// opcode. Loads and stores only compute their effective address here; the
// actual memory transaction runs in memoryPhase once it is known no
// earlier exception pre-empts it.
func (c *CPU) execute(in *Instruction) execResult {
	var r execResult

	rs := c.St.Reg(in.Rs)
	rt := c.St.Reg(in.Rt)
	simm := int32(utils.SignExtend(uint32(in.Imm), 16))
	zimm := uint32(in.Imm)

	switch in.Op {
	case OpNOP, OpSSNOP, OpSYNC, OpCACHE, OpPREF, OpWAIT:
		// no architectural effect beyond PC advance / WAIT's state change.

	case OpSLL:
		r.rd = rt << in.Shamt
	case OpSRL:
		r.rd = rt >> in.Shamt
	case OpSRA:
		r.rd = uint32(int32(rt) >> in.Shamt)
	case OpSLLV:
		r.rd = rt << (rs & 0x1F)
	case OpSRLV:
		r.rd = rt >> (rs & 0x1F)
	case OpSRAV:
		r.rd = uint32(int32(rt) >> (rs & 0x1F))

	case OpJR:
		r.cond, r.npc = true, rs
	case OpJALR:
		r.cond, r.npc, r.rd = true, rs, in.PC+8

	case OpMOVZ:
		r.writeRdCond, r.rd = rt == 0, rs
	case OpMOVN:
		r.writeRdCond, r.rd = rt != 0, rs

	case OpSYSCALL:
		c.doSyscall(&r, in)
	case OpBREAK:
		r.excOccurred, r.excCode = true, ExcBp

	case OpMFHI:
		r.rd = c.St.HI
	case OpMTHI:
		r.hi = rs
	case OpMFLO:
		r.rd = c.St.LO
	case OpMTLO:
		r.lo = rs

	case OpMULT:
		p := int64(int32(rs)) * int64(int32(rt))
		r.hi, r.lo = uint32(uint64(p)>>32), uint32(p)
	case OpMULTU:
		p := uint64(rs) * uint64(rt)
		r.hi, r.lo = uint32(p>>32), uint32(p)
	case OpDIV:
		// Divide by zero and INT_MIN / -1 both leave hi=lo=0.
		if rt != 0 && !(rs == 0x80000000 && rt == 0xFFFFFFFF) {
			r.lo = uint32(int32(rs) / int32(rt))
			r.hi = uint32(int32(rs) % int32(rt))
		}
	case OpDIVU:
		if rt != 0 {
			r.lo = rs / rt
			r.hi = rs % rt
		}
	case OpMADD, OpMADDU, OpMSUB, OpMSUBU:
		// All four variants accumulate the signed 64-bit product; the
		// unsigned ones do not get an unsigned product.
		acc := (uint64(c.St.HI) << 32) | uint64(c.St.LO)
		p := uint64(int64(int32(rs)) * int64(int32(rt)))
		if in.Op == OpMADD || in.Op == OpMADDU {
			acc += p
		} else {
			acc -= p
		}
		r.hi, r.lo = uint32(acc>>32), uint32(acc)
	case OpMUL:
		r.rd = uint32(int32(rs) * int32(rt))
	case OpCLZ:
		r.rd = uint32(bits.LeadingZeros32(rs))
	case OpCLO:
		r.rd = uint32(bits.LeadingZeros32(^rs))

	case OpADD:
		sum := rs + rt
		if utils.CheckAdditionOverflow(int32(rs), int32(rt), int32(sum)) {
			r.excOccurred, r.excCode = true, ExcOv
		} else {
			r.rd = sum
		}
	case OpADDU:
		r.rd = rs + rt
	case OpSUB:
		diff := rs - rt
		if utils.CheckSubtractionOverflow(int32(rs), int32(rt), int32(diff)) {
			r.excOccurred, r.excCode = true, ExcOv
		} else {
			r.rd = diff
		}
	case OpSUBU:
		r.rd = rs - rt
	case OpAND:
		r.rd = rs & rt
	case OpOR:
		r.rd = rs | rt
	case OpXOR:
		r.rd = rs ^ rt
	case OpNOR:
		r.rd = ^(rs | rt)
	case OpSLT:
		r.rd = boolU32(int32(rs) < int32(rt))
	case OpSLTU:
		r.rd = boolU32(rs < rt)

	case OpTGE:
		r.trapIf(int32(rs) >= int32(rt))
	case OpTGEU:
		r.trapIf(rs >= rt)
	case OpTLT:
		r.trapIf(int32(rs) < int32(rt))
	case OpTLTU:
		r.trapIf(rs < rt)
	case OpTEQ:
		r.trapIf(rs == rt)
	case OpTNE:
		r.trapIf(rs != rt)
	case OpTGEI:
		r.trapIf(int32(rs) >= simm)
	case OpTGEIU:
		r.trapIf(rs >= uint32(simm))
	case OpTLTI:
		r.trapIf(int32(rs) < simm)
	case OpTLTIU:
		r.trapIf(rs < uint32(simm))
	case OpTEQI:
		r.trapIf(int32(rs) == simm)
	case OpTNEI:
		r.trapIf(int32(rs) != simm)

	case OpBLTZ, OpBLTZL, OpBLTZAL:
		r.cond, r.npc, r.rd = int32(rs) < 0, branchTarget(in, simm), in.PC+8
	case OpBGEZ, OpBGEZL, OpBGEZAL:
		r.cond, r.npc, r.rd = int32(rs) >= 0, branchTarget(in, simm), in.PC+8
	case OpBEQ, OpBEQL:
		r.cond, r.npc = rs == rt, branchTarget(in, simm)
	case OpBNE, OpBNEL:
		r.cond, r.npc = rs != rt, branchTarget(in, simm)
	case OpBLEZ, OpBLEZL:
		r.cond, r.npc = int32(rs) <= 0, branchTarget(in, simm)
	case OpBGTZ, OpBGTZL:
		r.cond, r.npc = int32(rs) > 0, branchTarget(in, simm)

	case OpJ:
		r.cond, r.npc = true, jumpTarget(in)
	case OpJAL:
		r.cond, r.npc = true, jumpTarget(in)

	case OpADDI:
		sum := uint32(int32(rs) + simm)
		if utils.CheckAdditionOverflow(int32(rs), simm, int32(sum)) {
			r.excOccurred, r.excCode = true, ExcOv
		} else {
			r.rt = sum
		}
	case OpADDIU:
		r.rt = uint32(int32(rs) + simm)
	case OpSLTI:
		r.rt = boolU32(int32(rs) < simm)
	case OpSLTIU:
		r.rt = boolU32(rs < uint32(simm))
	case OpANDI:
		r.rt = rs & zimm
	case OpORI:
		r.rt = rs | zimm
	case OpXORI:
		r.rt = rs ^ zimm
	case OpLUI:
		r.rt = zimm << 16

	case OpMFC0, OpCFC0:
		if c.UseCP0 {
			r.rt = c.CP0.ReadReg(int(in.Rd))
		}
	case OpMTC0:
		if c.UseCP0 {
			c.CP0.WriteReg(int(in.Rd), rt)
		}
	case OpTLBR:
		if c.UseCP0 {
			c.CP0.TLBR()
		}
	case OpTLBWI:
		if c.UseCP0 {
			c.CP0.TLBWI()
		}
	case OpTLBWR:
		if c.UseCP0 {
			c.CP0.TLBWR()
		}
	case OpTLBP:
		if c.UseCP0 {
			c.CP0.TLBP()
		}
	case OpERET:
		if c.UseCP0 {
			r.cond, r.npc = true, c.CP0.ERET()
		}

	case OpLB, OpLH, OpLW, OpLBU, OpLHU, OpLWL, OpLWR, OpLL:
		r.vaddr = uint32(int32(rs) + simm)
	case OpSB, OpSH, OpSW, OpSWL, OpSWR, OpSC:
		r.vaddr = uint32(int32(rs) + simm)
		r.storeData = rt

	case OpFLOAT:
		if c.UseCP0 {
			r.excOccurred, r.excCode = true, ExcCpU
		} else {
			r.fatal = "floating-point instruction with no coprocessor 1 present"
		}

	case OpUNDEFINED:
		r.fatal = "unknown opcode"
	}

	return r
}

// trapIf raises the trap exception when the predicate holds. Traps take
// effect immediately, with no delay-slot latching.
func (r *execResult) trapIf(cond bool) {
	if cond {
		r.excOccurred, r.excCode = true, ExcTr
	}
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func branchTarget(in *Instruction, simm int32) uint32 {
	return uint32(int32(in.PC+4) + (simm << 2))
}

func jumpTarget(in *Instruction) uint32 {
	return (in.PC & 0xF0000000) | (in.Addr << 2)
}

// doSyscall implements the minimal OS emulation used when no CP0 is
// present to deliver a real SYSCALL exception: just enough to let freestanding
// test binaries exit and print without a real kernel.
func (c *CPU) doSyscall(r *execResult, in *Instruction) {
	if c.UseCP0 {
		r.excOccurred, r.excCode = true, ExcSys
		return
	}
	v0 := c.St.Reg(2)
	switch v0 {
	case sysExit:
		c.State = StateHalt
	case sysWrite:
		fd := c.St.Reg(4)
		addr := c.St.Reg(5)
		n := c.St.Reg(6)
		buf := make([]byte, 0, n)
		for i := uint32(0); i < n; i++ {
			paddr, _, _, ok := c.CP0.Translate(addr+i, false)
			if !ok {
				break
			}
			b, ok := c.MC.Read4BNow(paddr &^ 3)
			if !ok {
				break
			}
			shift := (paddr & 3) * 8
			buf = append(buf, byte(b>>shift))
		}
		if fd == 1 {
			os.Stdout.Write(buf)
		}
		c.St.SetReg(2, uint32(len(buf)))
		c.St.SetReg(7, 0)
	case sysIoctl:
		// no terminal state to report without a real kernel; report success.
		c.St.SetReg(2, 0)
		c.St.SetReg(7, 0)
	default:
		c.logf(0, "unhandled syscall %d at pc=0x%08x", v0, in.PC)
		c.St.SetReg(2, 0)
		c.St.SetReg(7, 0)
	}
}
