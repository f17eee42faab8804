package cache

import "testing"

func TestCacheCompulsoryThenHit(t *testing.T) {
	c := New(4, 2, 2) // 16B blocks, 4 sets, 2-way
	_, kind := c.Access(0x1000, false)
	if kind != MissCompulsory {
		t.Fatalf("first touch: kind=%v, want compulsory miss", kind)
	}
	lat, kind := c.Access(0x1000, false)
	if kind != MissNone {
		t.Fatalf("second touch of same block should hit, got %v", kind)
	}
	if lat != 1 {
		t.Fatalf("read hit latency = %d, want 1", lat)
	}
	if c.Hits != 1 || c.Misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 1/1", c.Hits, c.Misses)
	}
}

func TestCacheConflictMiss(t *testing.T) {
	c := New(4, 1, 1) // 16B blocks, 2 sets, direct-mapped: forces conflicts
	// addr 0x0000 and 0x0020 alias the same set (blockBits=4, setBits=1).
	c.Access(0x0000, false)
	c.Access(0x0020, false)
	_, kind := c.Access(0x0000, false)
	if kind != MissConflict && kind != MissCapacity {
		t.Fatalf("kind = %v, want conflict or capacity after eviction", kind)
	}
}

func TestCacheWritebackOnDirtyEviction(t *testing.T) {
	c := New(4, 1, 1)
	c.Penalty = 10
	c.Access(0x0000, true)             // dirty install
	lat, _ := c.Access(0x0020, false)  // evicts the dirty block from the same set
	if c.Writebacks != 1 {
		t.Fatalf("writebacks = %d, want 1", c.Writebacks)
	}
	if lat != 2*c.Penalty {
		t.Fatalf("dirty-eviction latency = %d, want 2*penalty = %d", lat, 2*c.Penalty)
	}
}

func TestCacheMissAndHitLatency(t *testing.T) {
	c := New(4, 2, 2)
	c.Penalty = 10
	lat, _ := c.Access(0x100, false)
	if lat != 10 {
		t.Fatalf("clean miss latency = %d, want penalty", lat)
	}
	lat, _ = c.Access(0x100, true) // writeback-policy write hit
	if lat != 1 {
		t.Fatalf("writeback write-hit latency = %d, want 1", lat)
	}
}

func TestCacheWriteThroughWriteHitPaysPenalty(t *testing.T) {
	c := New(4, 2, 2)
	c.Penalty = 10
	c.WriteThrough = true
	c.Access(0x200, false) // install via read
	lat, kind := c.Access(0x200, true)
	if kind != MissNone {
		t.Fatalf("second access should hit, got %v", kind)
	}
	if lat != c.Penalty {
		t.Fatalf("write-through write-hit latency = %d, want penalty = %d", lat, c.Penalty)
	}
	if c.Writebacks != 1 {
		t.Fatalf("write-through write hit should write memory once, got %d", c.Writebacks)
	}
}

// TestCacheThreeCScenario: a direct-mapped 4-line, 16-byte-line writeback
// cache accessed at 0, 64, 0 (all three aliasing set 0) must report
// access=3, hit=0, compulsory=2, conflict=1, capacity=0.
func TestCacheThreeCScenario(t *testing.T) {
	c := New(4, 2, 1) // 16B lines, 4 sets, direct-mapped -> 4 lines total
	c.Access(0, false)
	c.Access(64, false)
	_, kind := c.Access(0, false)
	if kind != MissConflict {
		t.Fatalf("third access kind = %v, want conflict", kind)
	}
	if c.Hits != 0 {
		t.Fatalf("hits = %d, want 0", c.Hits)
	}
	if c.Compulsory != 2 {
		t.Fatalf("compulsory = %d, want 2", c.Compulsory)
	}
	if c.Conflict != 1 {
		t.Fatalf("conflict = %d, want 1", c.Conflict)
	}
	if c.Capacity != 0 {
		t.Fatalf("capacity = %d, want 0", c.Capacity)
	}
	if total := c.Hits + c.Misses; total != 3 {
		t.Fatalf("total accesses = %d, want 3", total)
	}
}

// TestCacheWriteThroughStoreMissDoesNotAllocate checks the no-allocate rule:
// a write-through store miss goes straight to memory without installing a
// line or counting as a cache access.
func TestCacheWriteThroughStoreMissDoesNotAllocate(t *testing.T) {
	c := New(4, 2, 1)
	c.Penalty = 10
	c.WriteThrough = true
	lat, kind := c.Access(0x40, true)
	if kind == MissNone {
		t.Fatalf("cold store should miss")
	}
	if lat != c.Penalty {
		t.Fatalf("write-through store-miss latency = %d, want penalty", lat)
	}
	if c.Misses != 0 || c.Hits != 0 {
		t.Fatalf("write-through store miss must not count: hits=%d misses=%d", c.Hits, c.Misses)
	}
	if c.Writebacks != 1 {
		t.Fatalf("write-through store miss should write memory once, got %d", c.Writebacks)
	}
	// The block was not installed, so a read of the same address still misses.
	if _, kind := c.Access(0x40, false); kind == MissNone {
		t.Fatalf("read after a non-allocating store miss should still miss")
	}
}
