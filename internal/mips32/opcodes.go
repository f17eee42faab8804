// Package mips32 implements the MIPS32 instruction decoder, architectural
// state, CP0/TLB, memory subsystem, and the functional/multicycle
// interpreter that the pipeline engine (internal/pipeline) drives.
package mips32

// Op is a closed set of decoded instruction tags, mirroring the
// opcode/funct dispatch table of a classic two-level MIPS decoder.
type Op int

const (
	OpNOP Op = iota
	OpSSNOP
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV
	OpJR
	OpJALR
	OpMOVZ
	OpMOVN
	OpSYSCALL
	OpBREAK
	OpSYNC
	OpMFHI
	OpMTHI
	OpMFLO
	OpMTLO
	OpMULT
	OpMULTU
	OpDIV
	OpDIVU
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU
	OpTGE
	OpTGEU
	OpTLT
	OpTLTU
	OpTEQ
	OpTNE
	OpMADD
	OpMADDU
	OpMUL
	OpMSUB
	OpMSUBU
	OpCLZ
	OpCLO

	OpBLTZ
	OpBGEZ
	OpBLTZL
	OpBGEZL
	OpBLTZAL
	OpBGEZAL
	OpTGEI
	OpTGEIU
	OpTLTI
	OpTLTIU
	OpTEQI
	OpTNEI

	OpJ
	OpJAL
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI
	OpBEQL
	OpBNEL
	OpBLEZL
	OpBGTZL

	OpMFC0
	OpCFC0
	OpMTC0
	OpTLBR
	OpTLBWI
	OpTLBWR
	OpTLBP
	OpERET
	OpWAIT

	OpLB
	OpLH
	OpLWL
	OpLW
	OpLBU
	OpLHU
	OpLWR
	OpSB
	OpSH
	OpSWL
	OpSW
	OpSWR
	OpLL
	OpSC
	OpLWC1
	OpSWC1
	OpCACHE
	OpPREF

	OpFLOAT

	OpUNDEFINED
)

// Attribute flags, OR-combined onto a decoded Instruction.
const (
	ReadRS uint32 = 0x1
	ReadRT uint32 = 0x2
	ReadRD uint32 = 0x4
	ReadHI uint32 = 0x8
	ReadLO uint32 = 0x10

	WriteRS     uint32 = 0x100
	WriteRT     uint32 = 0x200
	WriteRD     uint32 = 0x400
	WriteHI     uint32 = 0x800
	WriteLO     uint32 = 0x1000
	WriteRDCond uint32 = 0x4000
	WriteRRA    uint32 = 0x8000

	Load1B         uint32 = 0x10000
	Load2B         uint32 = 0x20000
	Load4BAlign    uint32 = 0x40000
	Load4BUnalign  uint32 = 0x80000

	Store1B        uint32 = 0x100000
	Store2B        uint32 = 0x200000
	Store4BAlign   uint32 = 0x400000
	Store4BUnalign uint32 = 0x800000

	Branch       uint32 = 0x1000000
	BranchLikely uint32 = 0x2000000
	BranchEret   uint32 = 0x4000000
)

const (
	ReadHILO  = ReadHI | ReadLO
	WriteHILO = WriteHI | WriteLO

	LoadAny  = Load1B | Load2B | Load4BAlign | Load4BUnalign
	StoreAny = Store1B | Store2B | Store4BAlign | Store4BUnalign

	LoadStore         = LoadAny | StoreAny
	LoadStore4BUnalign = Load4BUnalign | Store4BUnalign
)

// Instruction is the fully decoded form of a 32-bit MIPS word: opcode tag,
// operand fields, attribute bitmask and static latency, plus the PC it was
// fetched at (needed for exception EPC computation and branch targets).
type Instruction struct {
	Raw   uint32
	PC    uint32
	Op    Op
	Attr  uint32
	Lat   int

	Rs, Rt, Rd, Shamt, Funct uint8
	Imm                      uint16
	Addr                     uint32
	Sel                      uint8
	CodeL                    uint32 // 20-bit syscall/break code
	CodeS                    uint32 // 10-bit wait code
}

func (i *Instruction) IsLoadStore() bool  { return i.Attr&LoadStore != 0 }
func (i *Instruction) IsBranchAny() bool  { return i.Attr&(Branch|BranchLikely|BranchEret) != 0 }
