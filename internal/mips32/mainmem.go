package mips32

// MainMemory is a lazily-paged flat address space: pages are allocated
// 4 KiB at a time on first touch and zero-filled. Words are stored in host
// byte order; byte/half extraction is done with shift/mask against the
// containing word, so bytes address little-endian-style inside each word.
// Devices observe this raw layout, so it must not change.
type MainMemory struct {
	pageTable map[uint32][]uint32 // page index -> PageSize/4 words
	external  map[uint32]bool
	size      uint32
}

const DefaultMemSize = 128 * 1024 * 1024 // 128 MiB

func NewMainMemory(size uint32) *MainMemory {
	if size == 0 {
		size = DefaultMemSize
	}
	npages := (size + PageSize - 1) / PageSize
	size = npages * PageSize
	return &MainMemory{
		pageTable: make(map[uint32][]uint32),
		external:  make(map[uint32]bool),
		size:      size,
	}
}

// SetPageEntry installs an externally-owned page buffer (words/len == 4).
func (m *MainMemory) SetPageEntry(addr uint32, words []uint32) []uint32 {
	if addr >= m.size {
		return nil
	}
	pidx := addr / PageSize
	m.pageTable[pidx] = words
	m.external[pidx] = true
	return words
}

func (m *MainMemory) page(addr uint32) []uint32 {
	pidx := addr / PageSize
	p, ok := m.pageTable[pidx]
	if !ok {
		p = make([]uint32, PageSize/4)
		m.pageTable[pidx] = p
	}
	return p
}

func (m *MainMemory) wordAt(addr uint32) *uint32 {
	p := m.page(addr)
	return &p[(addr%PageSize)/4]
}

func (m *MainMemory) Read1B(addr uint32) uint8 {
	offset := (addr & 0x3) * 8
	return uint8((*m.wordAt(addr) >> offset) & 0xFF)
}

func (m *MainMemory) Read2B(addr uint32) uint16 {
	offset := (addr & 0x2) * 8
	return uint16((*m.wordAt(addr) >> offset) & 0xFFFF)
}

func (m *MainMemory) Read4B(addr uint32) uint32 {
	return *m.wordAt(addr)
}

func (m *MainMemory) Read8B(addr uint32) uint64 {
	addr &^= 0x7
	lo := m.Read4B(addr)
	hi := m.Read4B(addr + 4)
	return (uint64(hi) << 32) | uint64(lo)
}

func (m *MainMemory) Write1B(addr uint32, v uint8) {
	w := m.wordAt(addr)
	offset := (addr & 0x3) * 8
	mask := uint32(0xFF) << offset
	*w = (*w &^ mask) | (uint32(v) << offset)
}

func (m *MainMemory) Write2B(addr uint32, v uint16) {
	w := m.wordAt(addr)
	offset := (addr & 0x2) * 8
	mask := uint32(0xFFFF) << offset
	*w = (*w &^ mask) | (uint32(v) << offset)
}

func (m *MainMemory) Write4B(addr uint32, v uint32) {
	*m.wordAt(addr) = v
}

func (m *MainMemory) Write8B(addr uint32, v uint64) {
	addr &^= 0x7
	m.Write4B(addr, uint32(v))
	m.Write4B(addr+4, uint32(v>>32))
}

func (m *MainMemory) Step() {}

// ReadBytes/WriteBytes are raw byte-range helpers for ELF/raw-file
// loading, bypassing the memory-controller queue.
func (m *MainMemory) ReadBytes(addr uint32, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = m.Read1B(addr + uint32(i))
	}
	return out
}

func (m *MainMemory) WriteBytes(addr uint32, data []byte) {
	for i, b := range data {
		m.Write1B(addr+uint32(i), b)
	}
}

func (m *MainMemory) Size() uint32 { return m.size }
