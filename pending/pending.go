// ════════════════════════════════════════════════════════════════════════════════════════════════
// Pending-Credit Delay Line
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Fixed-delay queue of decisions awaiting their value update
//
// Description:
//   Decisions enter at the front and leave from the back. The engine pushes, then retires
//   from the back while Len exceeds Capacity, so an entry is retired on exactly the
//   (Capacity+1)-th push after its own. Only the front and the back are ever read.
//
// Layout:
//   Monotonic cursors over a power-of-two backing array, as in the SPSC rings:
//     back  = buf[tail & mask]      oldest
//     front = buf[(head-1) & mask]  newest
//   The array holds Capacity+1 entries, the momentary peak between push and retire.
//
// ⚠️ Single-threaded. Owned by one engine.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package pending

import "rlpf/state"

// Entry is one decision awaiting credit assignment.
type Entry struct {
	State  state.State
	Action uint8
	Reward float64
}

// Queue is the delay line.
type Queue struct {
	head uint64 // next front slot
	tail uint64 // current back slot
	mask uint64
	cap  int
	buf  []Entry
}

// New returns a delay line retiring entries after capacity newer pushes.
// capacity 0 retires every entry on the push that created it.
func New(capacity int) *Queue {
	if capacity < 0 {
		panic("pending: capacity must be >= 0")
	}
	size := 1
	for size < capacity+1 {
		size <<= 1
	}
	return &Queue{
		mask: uint64(size - 1),
		cap:  capacity,
		buf:  make([]Entry, size),
	}
}

// Capacity returns K.
func (q *Queue) Capacity() int { return q.cap }

// Len returns the number of resident entries.
//
//go:nosplit
//go:inline
func (q *Queue) Len() int { return int(q.head - q.tail) }

// Overfull reports whether the back must be retired.
//
//go:nosplit
//go:inline
func (q *Queue) Overfull() bool { return q.Len() > q.cap }

// PushFront inserts e as the newest entry.
// Panics if the previous push was not followed by its retirement.
//
//go:nosplit
//go:registerparams
func (q *Queue) PushFront(e Entry) {
	if q.Len() > q.cap {
		panic("pending: push on overfull queue")
	}
	q.buf[q.head&q.mask] = e
	q.head++
}

// PopBack removes and returns the oldest entry.
//
//go:nosplit
//go:registerparams
func (q *Queue) PopBack() (Entry, bool) {
	if q.head == q.tail {
		return Entry{}, false
	}
	e := q.buf[q.tail&q.mask]
	q.tail++
	return e, true
}

// Front returns the newest entry without removing it.
//
//go:nosplit
//go:inline
func (q *Queue) Front() (Entry, bool) {
	if q.head == q.tail {
		return Entry{}, false
	}
	return q.buf[(q.head-1)&q.mask], true
}

// Back returns the oldest entry without removing it.
//
//go:nosplit
//go:inline
func (q *Queue) Back() (Entry, bool) {
	if q.head == q.tail {
		return Entry{}, false
	}
	return q.buf[q.tail&q.mask], true
}

// Reset empties the queue.
func (q *Queue) Reset() {
	q.head, q.tail = 0, 0
	clear(q.buf)
}
