package board

import (
	"debug/elf"
	"fmt"
	"os"

	"simmips/internal/mips32"
)

// LoadedELF carries the information siminit needs from a parsed object
// file: the entry point, the resolved _gp symbol (if any), and the segment
// bytes already copied into memory.
type LoadedELF struct {
	Entry uint32
	GP    uint32
	HasGP bool
}

// LoadELF opens path, validates it is a 32-bit MIPS ET_EXEC binary, and
// copies every loadable segment's bytes into mem starting at its load
// address.
func LoadELF(path string, mem *mips32.MainMemory) (*LoadedELF, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ELF %q: %w", path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%s: not a 32-bit ELF", path)
	}
	if f.Machine != elf.EM_MIPS {
		return nil, fmt.Errorf("%s: not a MIPS object (machine=%s)", path, f.Machine)
	}
	if f.Type != elf.ET_EXEC {
		return nil, fmt.Errorf("%s: not ET_EXEC (type=%s)", path, f.Type)
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return nil, fmt.Errorf("%s: read segment at %#x: %w", path, prog.Vaddr, err)
		}
		mem.WriteBytes(uint32(prog.Vaddr), data)
		if prog.Memsz > prog.Filesz {
			zeros := make([]byte, prog.Memsz-prog.Filesz)
			mem.WriteBytes(uint32(prog.Vaddr+prog.Filesz), zeros)
		}
	}

	out := &LoadedELF{Entry: uint32(f.Entry)}
	if syms, err := f.Symbols(); err == nil {
		for _, sym := range syms {
			if sym.Name == "_gp" {
				out.GP, out.HasGP = uint32(sym.Value), true
				break
			}
		}
	}
	return out, nil
}

// LoadRawFile reads path in full and returns its bytes, used by @mem
// directives to splice raw binary blobs into memory.
func LoadRawFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
