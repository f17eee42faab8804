package mips32

// Decode turns a raw 32-bit word into a fully attributed Instruction. It is
// a pure function of (word, pc): no architectural state is read. Dispatch
// is a two-level switch on opcode (bits 31:26) and, where opcode is 0, on
// funct (bits 5:0), with sub-tables for opcode 1 (REGIMM, dispatched on
// rt), opcode 16 (COP0, dispatched on rs/funct) and opcode 28 (SPECIAL2,
// dispatched on funct).
func Decode(word, pc uint32) Instruction {
	in := Instruction{
		Raw:   word,
		PC:    pc,
		Rs:    uint8((word >> 21) & 0x1F),
		Rt:    uint8((word >> 16) & 0x1F),
		Rd:    uint8((word >> 11) & 0x1F),
		Shamt: uint8((word >> 6) & 0x1F),
		Funct: uint8(word & 0x3F),
		Imm:   uint16(word & 0xFFFF),
		Addr:  word & 0x3FFFFFF,
		Sel:   uint8(word & 0x7),
		Lat:   1,
	}

	opcode := (word >> 26) & 0x3F

	switch opcode {
	case 0x00:
		decodeSpecial(&in)
	case 0x01:
		decodeRegimm(&in)
	case 0x02:
		in.Op, in.Attr = OpJ, Branch
	case 0x03:
		in.Op, in.Attr = OpJAL, Branch|WriteRRA
	case 0x04:
		in.Op, in.Attr = OpBEQ, ReadRS|ReadRT|Branch
	case 0x05:
		in.Op, in.Attr = OpBNE, ReadRS|ReadRT|Branch
	case 0x06:
		in.Op, in.Attr = OpBLEZ, ReadRS|Branch
	case 0x07:
		in.Op, in.Attr = OpBGTZ, ReadRS|Branch
	case 0x08:
		in.Op, in.Attr = OpADDI, ReadRS|WriteRT
	case 0x09:
		in.Op, in.Attr = OpADDIU, ReadRS|WriteRT
	case 0x0A:
		in.Op, in.Attr = OpSLTI, ReadRS|WriteRT
	case 0x0B:
		in.Op, in.Attr = OpSLTIU, ReadRS|WriteRT
	case 0x0C:
		in.Op, in.Attr = OpANDI, ReadRS|WriteRT
	case 0x0D:
		in.Op, in.Attr = OpORI, ReadRS|WriteRT
	case 0x0E:
		in.Op, in.Attr = OpXORI, ReadRS|WriteRT
	case 0x0F:
		in.Op, in.Attr = OpLUI, WriteRT
	case 0x10:
		decodeCop0(&in)
	case 0x14:
		in.Op, in.Attr = OpBEQL, ReadRS|ReadRT|BranchLikely
	case 0x15:
		in.Op, in.Attr = OpBNEL, ReadRS|ReadRT|BranchLikely
	case 0x16:
		in.Op, in.Attr = OpBLEZL, ReadRS|BranchLikely
	case 0x17:
		in.Op, in.Attr = OpBGTZL, ReadRS|BranchLikely
	case 0x1C:
		decodeSpecial2(&in)
	case 0x20:
		in.Op, in.Attr = OpLB, ReadRS|WriteRT|Load1B
	case 0x21:
		in.Op, in.Attr = OpLH, ReadRS|WriteRT|Load2B
	case 0x22:
		in.Op, in.Attr = OpLWL, ReadRS|ReadRT|WriteRT|Load4BUnalign
	case 0x23:
		in.Op, in.Attr = OpLW, ReadRS|WriteRT|Load4BAlign
	case 0x24:
		in.Op, in.Attr = OpLBU, ReadRS|WriteRT|Load1B
	case 0x25:
		in.Op, in.Attr = OpLHU, ReadRS|WriteRT|Load2B
	case 0x26:
		in.Op, in.Attr = OpLWR, ReadRS|ReadRT|WriteRT|Load4BUnalign
	case 0x28:
		in.Op, in.Attr = OpSB, ReadRS|ReadRT|Store1B
	case 0x29:
		in.Op, in.Attr = OpSH, ReadRS|ReadRT|Store2B
	case 0x2A:
		in.Op, in.Attr = OpSWL, ReadRS|ReadRT|Store4BUnalign
	case 0x2B:
		in.Op, in.Attr = OpSW, ReadRS|ReadRT|Store4BAlign
	case 0x2E:
		in.Op, in.Attr = OpSWR, ReadRS|ReadRT|Store4BUnalign
	case 0x2F:
		in.Op = OpCACHE
	case 0x30:
		in.Op, in.Attr = OpLL, ReadRS|WriteRT|Load4BAlign
	case 0x33:
		in.Op = OpPREF
	case 0x38:
		in.Op, in.Attr = OpSC, ReadRS|ReadRT|WriteRT|Store4BAlign
	default:
		in.Op = OpUNDEFINED
	}

	// Coprocessor-1 opcodes all decode to the float trap.
	switch opcode {
	case 0x11, 0x31, 0x35, 0x39, 0x3D:
		in.Op, in.Attr = OpFLOAT, 0
	}

	if in.Op == OpLWL || in.Op == OpLWR || in.Op == OpSWL || in.Op == OpSWR {
		in.Attr |= LoadStore4BUnalign
	}

	in.Lat = latencyOf(in.Op)

	return in
}

// latencyOf returns the multicycle stage count step_multi would charge this
// opcode: 4 for the multiplier, 10 for the divider, and 1 for everything
// else, loads and stores included (the CPU adds memoryLatency for those).
func latencyOf(op Op) int {
	switch op {
	case OpMULT, OpMULTU, OpMADD, OpMADDU, OpMSUB, OpMSUBU, OpMUL:
		return 4
	case OpDIV, OpDIVU:
		return 10
	default:
	}
	return 1
}

func decodeSpecial(in *Instruction) {
	switch in.Funct {
	case 0x00:
		if in.Rt == 0 && in.Rd == 0 {
			if in.Shamt == 0 {
				in.Op = OpNOP
			} else if in.Shamt == 1 {
				in.Op = OpSSNOP
			} else {
				in.Op, in.Attr = OpSLL, ReadRT|WriteRD
			}
		} else {
			in.Op, in.Attr = OpSLL, ReadRT|WriteRD
		}
	case 0x02:
		in.Op, in.Attr = OpSRL, ReadRT|WriteRD
	case 0x03:
		in.Op, in.Attr = OpSRA, ReadRT|WriteRD
	case 0x04:
		in.Op, in.Attr = OpSLLV, ReadRS|ReadRT|WriteRD
	case 0x06:
		in.Op, in.Attr = OpSRLV, ReadRS|ReadRT|WriteRD
	case 0x07:
		in.Op, in.Attr = OpSRAV, ReadRS|ReadRT|WriteRD
	case 0x08:
		in.Op, in.Attr = OpJR, ReadRS|Branch
	case 0x09:
		in.Op, in.Attr = OpJALR, ReadRS|WriteRD|Branch
	case 0x0A:
		in.Op, in.Attr = OpMOVZ, ReadRS|ReadRT|WriteRDCond
	case 0x0B:
		in.Op, in.Attr = OpMOVN, ReadRS|ReadRT|WriteRDCond
	case 0x0C:
		in.Op = OpSYSCALL
		in.CodeL = (in.Raw >> 6) & 0xFFFFF
	case 0x0D:
		in.Op = OpBREAK
		in.CodeL = (in.Raw >> 6) & 0xFFFFF
	case 0x0F:
		in.Op = OpSYNC
	case 0x10:
		in.Op, in.Attr = OpMFHI, ReadHI|WriteRD
	case 0x11:
		in.Op, in.Attr = OpMTHI, ReadRS|WriteHI
	case 0x12:
		in.Op, in.Attr = OpMFLO, ReadLO|WriteRD
	case 0x13:
		in.Op, in.Attr = OpMTLO, ReadRS|WriteLO
	case 0x18:
		in.Op, in.Attr = OpMULT, ReadRS|ReadRT|WriteHILO
	case 0x19:
		in.Op, in.Attr = OpMULTU, ReadRS|ReadRT|WriteHILO
	case 0x1A:
		in.Op, in.Attr = OpDIV, ReadRS|ReadRT|WriteHILO
	case 0x1B:
		in.Op, in.Attr = OpDIVU, ReadRS|ReadRT|WriteHILO
	case 0x20:
		in.Op, in.Attr = OpADD, ReadRS|ReadRT|WriteRD
	case 0x21:
		in.Op, in.Attr = OpADDU, ReadRS|ReadRT|WriteRD
	case 0x22:
		in.Op, in.Attr = OpSUB, ReadRS|ReadRT|WriteRD
	case 0x23:
		in.Op, in.Attr = OpSUBU, ReadRS|ReadRT|WriteRD
	case 0x24:
		in.Op, in.Attr = OpAND, ReadRS|ReadRT|WriteRD
	case 0x25:
		in.Op, in.Attr = OpOR, ReadRS|ReadRT|WriteRD
	case 0x26:
		in.Op, in.Attr = OpXOR, ReadRS|ReadRT|WriteRD
	case 0x27:
		in.Op, in.Attr = OpNOR, ReadRS|ReadRT|WriteRD
	case 0x2A:
		in.Op, in.Attr = OpSLT, ReadRS|ReadRT|WriteRD
	case 0x2B:
		in.Op, in.Attr = OpSLTU, ReadRS|ReadRT|WriteRD
	case 0x30:
		in.Op, in.Attr = OpTGE, ReadRS|ReadRT
	case 0x31:
		in.Op, in.Attr = OpTGEU, ReadRS|ReadRT
	case 0x32:
		in.Op, in.Attr = OpTLT, ReadRS|ReadRT
	case 0x33:
		in.Op, in.Attr = OpTLTU, ReadRS|ReadRT
	case 0x34:
		in.Op, in.Attr = OpTEQ, ReadRS|ReadRT
	case 0x36:
		in.Op, in.Attr = OpTNE, ReadRS|ReadRT
	default:
		in.Op = OpUNDEFINED
	}
}

func decodeRegimm(in *Instruction) {
	switch in.Rt {
	case 0x00:
		in.Op, in.Attr = OpBLTZ, ReadRS|Branch
	case 0x01:
		in.Op, in.Attr = OpBGEZ, ReadRS|Branch
	case 0x02:
		in.Op, in.Attr = OpBLTZL, ReadRS|BranchLikely
	case 0x03:
		in.Op, in.Attr = OpBGEZL, ReadRS|BranchLikely
	case 0x08:
		in.Op, in.Attr = OpTGEI, ReadRS
	case 0x09:
		in.Op, in.Attr = OpTGEIU, ReadRS
	case 0x0A:
		in.Op, in.Attr = OpTLTI, ReadRS
	case 0x0B:
		in.Op, in.Attr = OpTLTIU, ReadRS
	case 0x0C:
		in.Op, in.Attr = OpTEQI, ReadRS
	case 0x0E:
		in.Op, in.Attr = OpTNEI, ReadRS
	case 0x10:
		in.Op, in.Attr = OpBLTZAL, ReadRS|Branch|WriteRRA
	case 0x11:
		in.Op, in.Attr = OpBGEZAL, ReadRS|Branch|WriteRRA
	default:
		in.Op = OpUNDEFINED
	}
}

func decodeCop0(in *Instruction) {
	switch in.Rs {
	case 0x00:
		in.Op, in.Attr = OpMFC0, WriteRT
	case 0x02:
		in.Op, in.Attr = OpCFC0, WriteRT
	case 0x04:
		in.Op, in.Attr = OpMTC0, ReadRT
	case 0x10:
		switch in.Funct {
		case 0x01:
			in.Op = OpTLBR
		case 0x02:
			in.Op = OpTLBWI
		case 0x06:
			in.Op = OpTLBWR
		case 0x08:
			in.Op = OpTLBP
		case 0x18:
			in.Op, in.Attr = OpERET, BranchEret
		case 0x20:
			in.Op = OpWAIT
			in.CodeS = (in.Raw >> 6) & 0x3FF
		default:
			in.Op = OpUNDEFINED
		}
	default:
		in.Op = OpUNDEFINED
	}
}

func decodeSpecial2(in *Instruction) {
	switch in.Funct {
	case 0x00:
		in.Op, in.Attr = OpMADD, ReadRS|ReadRT|ReadHILO|WriteHILO
	case 0x01:
		in.Op, in.Attr = OpMADDU, ReadRS|ReadRT|ReadHILO|WriteHILO
	case 0x02:
		in.Op, in.Attr = OpMUL, ReadRS|ReadRT|WriteRD
	case 0x04:
		in.Op, in.Attr = OpMSUB, ReadRS|ReadRT|ReadHILO|WriteHILO
	case 0x05:
		in.Op, in.Attr = OpMSUBU, ReadRS|ReadRT|ReadHILO|WriteHILO
	case 0x20:
		in.Op, in.Attr = OpCLZ, ReadRS|WriteRD
	case 0x21:
		in.Op, in.Attr = OpCLO, ReadRS|WriteRD
	default:
		in.Op = OpUNDEFINED
	}
}
