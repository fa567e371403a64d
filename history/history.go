// ════════════════════════════════════════════════════════════════════════════════════════════════
// Delta History Store
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Per-instruction-pointer access pattern memory
//
// Description:
//   For every instruction pointer the store remembers the last accessed cache line and a
//   FIFO of the most recent line deltas (at most HistoryDepth, oldest evicted first).
//   The engine reads the window before an access and observes the access afterwards,
//   so a state key never includes the delta of the access that produced it.
//
// Notes:
//   - The first access from a PC records its line only. No delta exists yet.
//   - A repeated access to the same line records a zero delta.
//   - limit == 0 keeps every PC ever seen. limit > 0 forgets the least recently active PC.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package history

import (
	"rlpf/constants"
	"rlpf/lru"
)

// Depth is the FIFO capacity.
const Depth = constants.HistoryDepth

// Window is the per-PC record.
type Window struct {
	last   uint64
	seen   bool
	n      uint8
	deltas [Depth]int64
}

// Deltas returns the recorded deltas, oldest first.
func (w *Window) Deltas() []int64 { return w.deltas[:w.n] }

// Len returns the number of recorded deltas.
func (w Window) Len() int { return int(w.n) }

//go:nosplit
//go:inline
func (w *Window) push(d int64) {
	if w.n < Depth {
		w.deltas[w.n] = d
		w.n++
		return
	}
	copy(w.deltas[:], w.deltas[1:])
	w.deltas[Depth-1] = d
}

// Store maps instruction pointers to their windows.
type Store struct {
	pcs *lru.Cache[uint64, Window]
}

// New returns a store tracking at most limit PCs (0 = unbounded).
func New(limit int) *Store {
	return &Store{pcs: lru.New[uint64, Window](limit)}
}

// Window returns a copy of the current window for pc. An unseen PC yields the empty window.
//
//go:nosplit
func (s *Store) Window(pc uint64) Window {
	if w, ok := s.pcs.Peek(pc); ok {
		return *w
	}
	return Window{}
}

// Observe records an access to line from pc.
//
//go:nosplit
func (s *Store) Observe(pc, line uint64) {
	w, _ := s.pcs.GetOrInsert(pc)
	if w.seen {
		w.push(int64(line - w.last))
	}
	w.last = line
	w.seen = true
}

// Len returns the number of tracked PCs.
func (s *Store) Len() int { return s.pcs.Len() }

// Evictions returns how many PCs the bound has forgotten.
func (s *Store) Evictions() uint64 { return s.pcs.Evictions() }

// Reset forgets every PC.
func (s *Store) Reset() { s.pcs.Clear() }
