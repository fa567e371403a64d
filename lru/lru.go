// ════════════════════════════════════════════════════════════════════════════════════════════════
// Index-Linked LRU Map
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Optional capacity bound for per-context learning state
//
// Description:
//   Map from a comparable key to an in-place value with least-recently-used eviction.
//   Entries live in one arena slice and are chained by int32 indices instead of
//   pointers, so the list costs 8 bytes per entry and produces no per-entry garbage.
//
// Design Principles:
//   - limit == 0 means unbounded: entries are never evicted
//   - limit > 0 preallocates the arena, inserts beyond it recycle the LRU slot
//   - Value pointers are stable until the next insertion into an unbounded cache
//
// ⚠️ Single-threaded. One instance per engine, never shared across cores.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package lru

const nilIdx int32 = -1

type node[K comparable, V any] struct {
	key  K
	val  V
	prev int32 // towards MRU
	next int32 // towards LRU
}

// Cache is an LRU-ordered map with an optional capacity bound.
type Cache[K comparable, V any] struct {
	index     map[K]int32
	nodes     []node[K, V]
	head      int32 // most recently used
	tail      int32 // least recently used
	limit     int
	evictions uint64
}

// New creates a cache holding at most limit entries (0 = unbounded).
func New[K comparable, V any](limit int) *Cache[K, V] {
	if limit < 0 {
		limit = 0
	}
	c := &Cache[K, V]{
		index: make(map[K]int32, limit),
		nodes: make([]node[K, V], 0, limit),
		head:  nilIdx,
		tail:  nilIdx,
		limit: limit,
	}
	return c
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int { return len(c.index) }

// Evictions returns how many entries the bound has displaced since the last Clear.
func (c *Cache[K, V]) Evictions() uint64 { return c.evictions }

// Peek returns the value for k without changing recency.
func (c *Cache[K, V]) Peek(k K) (*V, bool) {
	i, ok := c.index[k]
	if !ok {
		return nil, false
	}
	return &c.nodes[i].val, true
}

// GetOrInsert returns the value for k, inserting a zero value first if absent.
// The entry becomes most recently used either way.
func (c *Cache[K, V]) GetOrInsert(k K) (v *V, inserted bool) {
	if i, ok := c.index[k]; ok {
		c.touch(i)
		return &c.nodes[i].val, false
	}

	var i int32
	if c.limit > 0 && len(c.index) >= c.limit {
		i = c.tail
		c.unlink(i)
		delete(c.index, c.nodes[i].key)
		c.evictions++
	} else {
		c.nodes = append(c.nodes, node[K, V]{})
		i = int32(len(c.nodes) - 1)
	}

	c.nodes[i] = node[K, V]{key: k, prev: nilIdx, next: nilIdx}
	c.index[k] = i
	c.pushFront(i)
	return &c.nodes[i].val, true
}

// Each visits entries from most to least recently used until fn returns false.
// fn must not insert.
func (c *Cache[K, V]) Each(fn func(k K, v *V) bool) {
	for i := c.head; i != nilIdx; i = c.nodes[i].next {
		if !fn(c.nodes[i].key, &c.nodes[i].val) {
			return
		}
	}
}

// Clear drops every entry and resets the eviction counter. The arena is
// zeroed so dropped keys and values are not kept reachable.
func (c *Cache[K, V]) Clear() {
	c.index = make(map[K]int32, c.limit)
	clear(c.nodes)
	c.nodes = c.nodes[:0]
	c.head, c.tail = nilIdx, nilIdx
	c.evictions = 0
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// LIST MAINTENANCE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

//go:nosplit
//go:inline
func (c *Cache[K, V]) unlink(i int32) {
	n := &c.nodes[i]
	if n.prev != nilIdx {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nilIdx {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nilIdx, nilIdx
}

//go:nosplit
//go:inline
func (c *Cache[K, V]) pushFront(i int32) {
	n := &c.nodes[i]
	n.prev = nilIdx
	n.next = c.head
	if c.head != nilIdx {
		c.nodes[c.head].prev = i
	} else {
		c.tail = i
	}
	c.head = i
}

//go:nosplit
//go:inline
func (c *Cache[K, V]) touch(i int32) {
	if c.head == i {
		return
	}
	c.unlink(i)
	c.pushFront(i)
}
