// Package cache implements a set-associative data cache: a fixed number of
// sets, each holding way-many LRU-ordered blocks, classifying every miss
// as compulsory, capacity, or conflict per the standard 3-C model.
package cache

// MissKind classifies why a lookup missed.
type MissKind int

const (
	MissNone MissKind = iota
	MissCompulsory
	MissCapacity
	MissConflict
)

func (m MissKind) String() string {
	switch m {
	case MissNone:
		return "hit"
	case MissCompulsory:
		return "compulsory"
	case MissCapacity:
		return "capacity"
	case MissConflict:
		return "conflict"
	}
	return "?"
}

type block struct {
	valid bool
	dirty bool
	tag   uint32
}

// Cache is a fixed-geometry LRU set-associative cache, write-back unless
// WriteThrough is set.
type Cache struct {
	blockBits uint
	setBits   uint
	ways      int

	sets [][]block
	lru  [][]int // per set, most-recently-used way first

	touched map[uint64]bool // blocks ever seen, for compulsory-miss classification
	capSeen map[uint64]bool // blocks that have missed at some point; classifyMiss does not read it

	// WriteThrough, when true, makes every write hit count as an immediate
	// writeback instead of marking the block dirty for eviction-time
	// writeback, matching the -dcache-writeback 0 CLI option.
	WriteThrough bool

	// Penalty is the miss cost in cycles returned by Access; a hit costs 1,
	// except write-through writes which always pay the memory latency.
	Penalty int

	Hits       uint64
	Misses     uint64
	Compulsory uint64
	Capacity   uint64
	Conflict   uint64
	Writebacks uint64
}

// New builds a cache with 2^blockBits bytes per block, 2^setBits sets, and
// the given associativity.
func New(blockBits, setBits uint, ways int) *Cache {
	nsets := 1 << setBits
	c := &Cache{
		blockBits: blockBits,
		setBits:   setBits,
		ways:      ways,
		sets:      make([][]block, nsets),
		lru:       make([][]int, nsets),
		touched:   make(map[uint64]bool),
		capSeen:   make(map[uint64]bool),
	}
	for i := range c.sets {
		c.sets[i] = make([]block, ways)
		order := make([]int, ways)
		for w := range order {
			order[w] = w
		}
		c.lru[i] = order
	}
	return c
}

func (c *Cache) decode(addr uint32) (set int, tag uint32, blockID uint64) {
	blockID = uint64(addr) >> c.blockBits
	set = int(blockID & ((1 << c.setBits) - 1))
	tag = uint32(blockID >> c.setBits)
	return
}

// Access performs a read (write=false) or write (write=true) to addr,
// returning the latency in cycles and the miss's 3-C classification
// (MissNone on a hit). A hit costs 1 cycle, except a write-through write
// which always pays Penalty; a miss costs Penalty, or 2*Penalty when the
// evicted victim is dirty under writeback.
func (c *Cache) Access(addr uint32, write bool) (lat int, kind MissKind) {
	set, tag, blockID := c.decode(addr)
	ways := c.sets[set]
	order := c.lru[set]

	for pos, w := range order {
		b := &ways[w]
		if b.valid && b.tag == tag {
			lat = 1
			if write {
				if c.WriteThrough {
					c.Writebacks++
					lat = c.Penalty
				} else {
					b.dirty = true
				}
			}
			c.promote(set, pos)
			c.Hits++
			return lat, MissNone
		}
	}

	kind = c.classifyMiss(set, blockID)
	c.touched[blockID] = true
	c.capSeen[blockID] = true

	// A write-through store miss does not allocate a line and does not count
	// toward the access/miss tallies; the write goes straight to memory.
	if write && c.WriteThrough {
		c.Writebacks++
		return c.Penalty, kind
	}

	victimDirty := c.install(set, tag, write)
	lat = c.Penalty
	if victimDirty {
		lat = 2 * c.Penalty
	}
	c.Misses++
	switch kind {
	case MissCompulsory:
		c.Compulsory++
	case MissCapacity:
		c.Capacity++
	case MissConflict:
		c.Conflict++
	}
	return lat, kind
}

// classifyMiss decides compulsory/capacity/conflict before the new block is
// installed: never-seen-before blocks are compulsory; a block seen before
// is a conflict miss while any way anywhere in the cache is still empty,
// and a capacity miss once every way is occupied.
func (c *Cache) classifyMiss(set int, blockID uint64) MissKind {
	if !c.touched[blockID] {
		return MissCompulsory
	}
	if c.anySetHasFreeWay() {
		return MissConflict
	}
	return MissCapacity
}

func (c *Cache) anySetHasFreeWay() bool {
	for _, ways := range c.sets {
		for _, b := range ways {
			if !b.valid {
				return true
			}
		}
	}
	return false
}

// install places a new block into the LRU-victim way of set, writing back
// the evicted block if dirty, and reports whether such a writeback happened.
func (c *Cache) install(set int, tag uint32, write bool) (victimDirty bool) {
	order := c.lru[set]
	victimPos := len(order) - 1
	victimWay := order[victimPos]
	b := &c.sets[set][victimWay]
	if b.valid && b.dirty {
		c.Writebacks++
		victimDirty = true
	}
	*b = block{valid: true, dirty: write, tag: tag}
	c.promote(set, victimPos)
	return victimDirty
}

// promote moves the way at order[pos] to the front of the LRU list.
func (c *Cache) promote(set, pos int) {
	order := c.lru[set]
	w := order[pos]
	copy(order[1:pos+1], order[0:pos])
	order[0] = w
}

// Flush writes back every dirty block and invalidates the cache.
func (c *Cache) Flush() (writebacks int) {
	for s := range c.sets {
		for w := range c.sets[s] {
			b := &c.sets[s][w]
			if b.valid && b.dirty {
				writebacks++
			}
			*b = block{}
		}
	}
	return writebacks
}
