package mips32

import "fmt"

// mnemonics holds one lowercase assembler mnemonic per Op.
var mnemonics = map[Op]string{
	OpNOP: "nop", OpSSNOP: "ssnop", OpSLL: "sll", OpSRL: "srl", OpSRA: "sra",
	OpSLLV: "sllv", OpSRLV: "srlv", OpSRAV: "srav", OpJR: "jr", OpJALR: "jalr",
	OpMOVZ: "movz", OpMOVN: "movn", OpSYSCALL: "syscall", OpBREAK: "break",
	OpSYNC: "sync", OpMFHI: "mfhi", OpMTHI: "mthi", OpMFLO: "mflo", OpMTLO: "mtlo",
	OpMULT: "mult", OpMULTU: "multu", OpDIV: "div", OpDIVU: "divu",
	OpADD: "add", OpADDU: "addu", OpSUB: "sub", OpSUBU: "subu",
	OpAND: "and", OpOR: "or", OpXOR: "xor", OpNOR: "nor",
	OpSLT: "slt", OpSLTU: "sltu",
	OpTGE: "tge", OpTGEU: "tgeu", OpTLT: "tlt", OpTLTU: "tltu", OpTEQ: "teq", OpTNE: "tne",
	OpMADD: "madd", OpMADDU: "maddu", OpMUL: "mul", OpMSUB: "msub", OpMSUBU: "msubu",
	OpCLZ: "clz", OpCLO: "clo",
	OpBLTZ: "bltz", OpBGEZ: "bgez", OpBLTZL: "bltzl", OpBGEZL: "bgezl",
	OpBLTZAL: "bltzal", OpBGEZAL: "bgezal",
	OpTGEI: "tgei", OpTGEIU: "tgeiu", OpTLTI: "tlti", OpTLTIU: "tltiu",
	OpTEQI: "teqi", OpTNEI: "tnei",
	OpJ: "j", OpJAL: "jal", OpBEQ: "beq", OpBNE: "bne", OpBLEZ: "blez", OpBGTZ: "bgtz",
	OpADDI: "addi", OpADDIU: "addiu", OpSLTI: "slti", OpSLTIU: "sltiu",
	OpANDI: "andi", OpORI: "ori", OpXORI: "xori", OpLUI: "lui",
	OpBEQL: "beql", OpBNEL: "bnel", OpBLEZL: "blezl", OpBGTZL: "bgtzl",
	OpMFC0: "mfc0", OpCFC0: "cfc0", OpMTC0: "mtc0",
	OpTLBR: "tlbr", OpTLBWI: "tlbwi", OpTLBWR: "tlbwr", OpTLBP: "tlbp",
	OpERET: "eret", OpWAIT: "wait",
	OpLB: "lb", OpLH: "lh", OpLWL: "lwl", OpLW: "lw", OpLBU: "lbu", OpLHU: "lhu", OpLWR: "lwr",
	OpSB: "sb", OpSH: "sh", OpSWL: "swl", OpSW: "sw", OpSWR: "swr",
	OpLL: "ll", OpSC: "sc", OpLWC1: "lwc1", OpSWC1: "swc1",
	OpCACHE: "cache", OpPREF: "pref",
	OpFLOAT: "cop1", OpUNDEFINED: "undefined",
}

// String returns the op's assembler mnemonic, for disassembly and the
// instruction-mix report.
func (op Op) String() string {
	if m, ok := mnemonics[op]; ok {
		return m
	}
	return "?"
}

var gpr = []string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

func regName(i uint8) string {
	if int(i) < len(gpr) {
		return "$" + gpr[i]
	}
	return "$?"
}

// Disassemble renders in as a single assembler-syntax line:
// register-register ops print "op rd, rs, rt", immediate ops print
// "op rt, rs, imm", loads/stores print "op rt, imm(rs)", branches print
// "op rs, rt, target" (omitting absent operands), jumps print
// "op target", and mfc0 prints "op rt, rd.sel".
func (in *Instruction) Disassemble() string {
	name := in.Op.String()
	switch {
	case in.Op == OpJ || in.Op == OpJAL:
		return fmt.Sprintf("%-8s 0x%08x", name, jumpTarget(in))
	case in.IsLoadStore():
		return fmt.Sprintf("%-8s %s, %d(%s)", name, regName(in.Rt), int16(in.Imm), regName(in.Rs))
	case in.Attr&(Branch|BranchLikely) != 0 && in.Attr&(ReadRS|ReadRT) == (ReadRS|ReadRT):
		return fmt.Sprintf("%-8s %s, %s, 0x%08x", name, regName(in.Rs), regName(in.Rt), branchTarget(in, int32(int16(in.Imm))))
	case in.Attr&(Branch|BranchLikely) != 0 && in.Attr&ReadRS != 0:
		return fmt.Sprintf("%-8s %s, 0x%08x", name, regName(in.Rs), branchTarget(in, int32(int16(in.Imm))))
	case in.Attr&WriteRD != 0 && in.Attr&(ReadRS|ReadRT) == (ReadRS|ReadRT):
		return fmt.Sprintf("%-8s %s, %s, %s", name, regName(in.Rd), regName(in.Rs), regName(in.Rt))
	case in.Attr&WriteRD != 0 && in.Attr&ReadRT != 0:
		return fmt.Sprintf("%-8s %s, %s, %d", name, regName(in.Rd), regName(in.Rt), in.Shamt)
	case in.Attr&WriteRT != 0 && in.Attr&ReadRS != 0:
		return fmt.Sprintf("%-8s %s, %s, %d", name, regName(in.Rt), regName(in.Rs), int16(in.Imm))
	case in.Op == OpLUI:
		return fmt.Sprintf("%-8s %s, 0x%04x", name, regName(in.Rt), in.Imm)
	case in.Op == OpMFC0:
		return fmt.Sprintf("%-8s %s, %d.%d", name, regName(in.Rt), in.Rd, in.Sel)
	default:
		return name
	}
}
