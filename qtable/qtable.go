// ════════════════════════════════════════════════════════════════════════════════════════════════
// Action-Value Table
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Learned V(state, action) storage
//
// Description:
//   Maps a state key to one value per action. Rows are created lazily at zero by Ensure and
//   only read or written after that. Values are handed out by copy so callers never hold
//   pointers into the backing arena.
//
// Notes:
//   - limit == 0 never evicts. limit > 0 drops the least recently ensured state; a dropped
//     state that comes back starts again from zero.
//   - Read/Write of a state that was never ensured is a caller bug and panics.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package qtable

import (
	"rlpf/action"
	"rlpf/lru"
	"rlpf/state"
)

// Row holds one value per action, indexed like action.Offsets.
type Row [action.Count]float64

// Table is the value table of one engine.
type Table struct {
	rows *lru.Cache[state.State, Row]
}

// New returns a table holding at most limit states (0 = unbounded).
func New(limit int) *Table {
	return &Table{rows: lru.New[state.State, Row](limit)}
}

// Ensure creates a zero row for s if none exists and marks s recently used.
// Reports whether a row was created.
//
//go:nosplit
func (t *Table) Ensure(s state.State) bool {
	_, inserted := t.rows.GetOrInsert(s)
	return inserted
}

// Has reports whether s has a row.
func (t *Table) Has(s state.State) bool {
	_, ok := t.rows.Peek(s)
	return ok
}

// Read returns V(s, a).
//
//go:nosplit
func (t *Table) Read(s state.State, a int) float64 {
	return t.mustRow(s)[a]
}

// Write replaces V(s, a).
//
//go:nosplit
func (t *Table) Write(s state.State, a int, v float64) {
	t.mustRow(s)[a] = v
}

// Row returns a copy of the row for s.
//
//go:nosplit
func (t *Table) Row(s state.State) Row {
	return *t.mustRow(s)
}

// Set stores a full row for s, creating it if needed. Used when restoring snapshots.
func (t *Table) Set(s state.State, r Row) {
	p, _ := t.rows.GetOrInsert(s)
	*p = r
}

// Len returns the number of resident states.
func (t *Table) Len() int { return t.rows.Len() }

// Evictions returns how many states the bound has dropped.
func (t *Table) Evictions() uint64 { return t.rows.Evictions() }

// Each visits states from most to least recently ensured until fn returns false.
func (t *Table) Each(fn func(s state.State, r Row) bool) {
	t.rows.Each(func(s state.State, r *Row) bool { return fn(s, *r) })
}

// Reset drops every row.
func (t *Table) Reset() { t.rows.Clear() }

func (t *Table) mustRow(s state.State) *Row {
	r, ok := t.rows.Peek(s)
	if !ok {
		panic("qtable: access to state that was never ensured")
	}
	return r
}
