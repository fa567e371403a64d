package sim

// ============================================================================
// SET-ASSOCIATIVE HOST CACHE MODEL
// ============================================================================
//
// Line-granular cache with per-set LRU replacement. Tracks whether a resident
// line was brought in by a prefetch and not yet touched by demand, which is
// what classifies prefetches as useful or useless.

// CacheStats counts demand and prefetch outcomes.
type CacheStats struct {
	DemandHits    uint64
	DemandMisses  uint64
	PrefetchFills uint64
	Useful        uint64 // prefetched lines later hit by demand
	Useless       uint64 // prefetched lines evicted untouched
}

// Accuracy is Useful / PrefetchFills (0 without fills).
func (s CacheStats) Accuracy() float64 {
	if s.PrefetchFills == 0 {
		return 0
	}
	return float64(s.Useful) / float64(s.PrefetchFills)
}

// HitRate is DemandHits / demand accesses (0 without accesses).
func (s CacheStats) HitRate() float64 {
	n := s.DemandHits + s.DemandMisses
	if n == 0 {
		return 0
	}
	return float64(s.DemandHits) / float64(n)
}

type way struct {
	line       uint64
	stamp      uint64 // last use; 0 = invalid
	prefetched bool
}

// Cache is a single-owner cache model.
type Cache struct {
	ways  int
	mask  uint64
	lines []way // sets × ways
	clock uint64
	stats CacheStats
}

// NewCache builds a cache of sets × ways lines. sets must be a power of two.
func NewCache(sets, ways int) *Cache {
	if sets <= 0 || sets&(sets-1) != 0 || ways <= 0 {
		panic("sim: cache geometry must be power-of-two sets and >= 1 way")
	}
	return &Cache{
		ways:  ways,
		mask:  uint64(sets - 1),
		lines: make([]way, sets*ways),
	}
}

// Stats returns the counters.
func (c *Cache) Stats() CacheStats { return c.stats }

//go:nosplit
//go:inline
func (c *Cache) set(line uint64) []way {
	base := int(line&c.mask) * c.ways
	return c.lines[base : base+c.ways]
}

// Contains reports residency without touching recency.
func (c *Cache) Contains(line uint64) bool {
	for _, w := range c.set(line) {
		if w.stamp != 0 && w.line == line {
			return true
		}
	}
	return false
}

// Access performs a demand access. On a miss the line is filled and the
// displaced line, if any, is returned.
func (c *Cache) Access(line uint64) (hit bool, evicted uint64, didEvict bool) {
	c.clock++
	set := c.set(line)
	for i := range set {
		w := &set[i]
		if w.stamp != 0 && w.line == line {
			w.stamp = c.clock
			if w.prefetched {
				w.prefetched = false
				c.stats.Useful++
			}
			c.stats.DemandHits++
			return true, 0, false
		}
	}
	c.stats.DemandMisses++
	evicted, didEvict = c.install(set, line, false)
	return false, evicted, didEvict
}

// Fill installs a prefetched line. The caller checks residency first.
func (c *Cache) Fill(line uint64) (evicted uint64, didEvict bool) {
	c.clock++
	c.stats.PrefetchFills++
	return c.install(c.set(line), line, true)
}

func (c *Cache) install(set []way, line uint64, prefetched bool) (uint64, bool) {
	victim := 0
	for i := range set {
		if set[i].stamp == 0 {
			victim = i
			break
		}
		if set[i].stamp < set[victim].stamp {
			victim = i
		}
	}
	w := &set[victim]
	old, had := w.line, w.stamp != 0
	if had && w.prefetched {
		c.stats.Useless++
	}
	*w = way{line: line, stamp: c.clock, prefetched: prefetched}
	return old, had
}
