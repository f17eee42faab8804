package mips32

import "testing"

func encodeR(opcode, rs, rt, rd, shamt, funct uint32) uint32 {
	return opcode<<26 | rs<<21 | rt<<16 | rd<<11 | shamt<<6 | funct
}

func encodeI(opcode, rs, rt, imm uint32) uint32 {
	return opcode<<26 | rs<<21 | rt<<16 | (imm & 0xFFFF)
}

func encodeJ(opcode, addr uint32) uint32 {
	return opcode<<26 | (addr & 0x3FFFFFF)
}

func TestDecodeRType(t *testing.T) {
	word := encodeR(0, 8, 9, 10, 0, 0x20) // ADD $10, $8, $9
	in := Decode(word, 0x1000)
	if in.Op != OpADD {
		t.Fatalf("op = %v, want OpADD", in.Op)
	}
	if in.Rs != 8 || in.Rt != 9 || in.Rd != 10 {
		t.Fatalf("fields = %+v", in)
	}
	if in.Attr&(ReadRS|ReadRT|WriteRD) != (ReadRS | ReadRT | WriteRD) {
		t.Fatalf("attr = %#x", in.Attr)
	}
}

func TestDecodeNopVsSll(t *testing.T) {
	if in := Decode(0, 0); in.Op != OpNOP {
		t.Fatalf("all-zero word should decode NOP, got %v", in.Op)
	}
	sll := Decode(encodeR(0, 0, 9, 10, 4, 0x00), 0)
	if sll.Op != OpSLL {
		t.Fatalf("shamt=4 rd!=0 should decode SLL, got %v", sll.Op)
	}
	ssnop := Decode(encodeR(0, 0, 0, 0, 1, 0x00), 0)
	if ssnop.Op != OpSSNOP {
		t.Fatalf("shamt=1 rt=rd=0 should decode SSNOP, got %v", ssnop.Op)
	}
}

func TestDecodeIType(t *testing.T) {
	in := Decode(encodeI(0x09, 4, 5, 0xFFFE), 0) // ADDIU $5, $4, -2
	if in.Op != OpADDIU {
		t.Fatalf("op = %v, want OpADDIU", in.Op)
	}
	if in.Imm != 0xFFFE {
		t.Fatalf("imm = %#x", in.Imm)
	}
}

func TestDecodeJType(t *testing.T) {
	in := Decode(encodeJ(0x02, 0x3FFFFFF), 0)
	if in.Op != OpJ {
		t.Fatalf("op = %v, want OpJ", in.Op)
	}
	if in.Addr != 0x3FFFFFF {
		t.Fatalf("addr = %#x", in.Addr)
	}
}

func TestDecodeFloatOpcodesTrapDomain(t *testing.T) {
	for _, op := range []uint32{0x11, 0x31, 0x35, 0x39, 0x3D} {
		in := Decode(op<<26, 0)
		if in.Op != OpFLOAT {
			t.Fatalf("opcode %#x should decode OpFLOAT, got %v", op, in.Op)
		}
		if in.Attr != 0 {
			t.Fatalf("OpFLOAT should carry no attributes, got %#x", in.Attr)
		}
	}
}

func TestAttributeBitLayoutHasGap(t *testing.T) {
	if WriteLO != 0x1000 {
		t.Fatalf("WriteLO = %#x, want 0x1000", WriteLO)
	}
	if WriteRDCond != 0x4000 {
		t.Fatalf("WriteRDCond = %#x, want 0x4000 (gap at 0x2000 preserved)", WriteRDCond)
	}
}

func TestDecodeCop0(t *testing.T) {
	mfc0 := Decode(encodeR(0x10, 0x00, 8, 12, 0, 0), 0)
	if mfc0.Op != OpMFC0 {
		t.Fatalf("op = %v, want OpMFC0", mfc0.Op)
	}
	eret := Decode(encodeR(0x10, 0x10, 0, 0, 0, 0x18), 0)
	if eret.Op != OpERET {
		t.Fatalf("op = %v, want OpERET", eret.Op)
	}
	if eret.Attr&BranchEret == 0 {
		t.Fatalf("ERET should carry BranchEret attribute")
	}
}

func TestDecodeUnalignedLoadStoreAttr(t *testing.T) {
	lwl := Decode(encodeI(0x22, 4, 5, 0), 0)
	if lwl.Attr&LoadStore4BUnalign == 0 {
		t.Fatalf("LWL should carry LoadStore4BUnalign")
	}
	swr := Decode(encodeI(0x2E, 4, 5, 0), 0)
	if swr.Attr&LoadStore4BUnalign == 0 {
		t.Fatalf("SWR should carry LoadStore4BUnalign")
	}
}
