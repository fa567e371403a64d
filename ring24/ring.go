// ============================================================================
// SPSC RING FOR PACKED ACCESS EVENTS
// ============================================================================
//
// Single-producer/single-consumer ring carrying 24-byte payloads
// (types.AccessEvent.Pack) from the trace producer to one pinned core.
//
// Design:
//   - Power-of-2 sizing, slot index = cursor & mask
//   - Per-slot sequence numbers signal availability, no RMW atomics
//   - Producer and consumer cursors on separate cache lines
//
// Safety model:
//   - Exactly one producer goroutine and one consumer goroutine
//   - Push returns false when full; PushWait spins until space or stop
//   - Pop copies the payload out before freeing the slot; the returned
//     pointer is valid until the next Pop
// ============================================================================

package ring24

import "sync/atomic"

// slot is one payload plus its sequence number (32 bytes, half a cache line).
//
// Sequence protocol for cursor position p:
//   - seq == p       slot free for the producer
//   - seq == p+1     payload ready for the consumer
//   - seq == p+size  freed by the consumer for the next lap
type slot struct {
	val [24]byte
	seq uint64
}

// Ring is a cache-line padded SPSC queue.
type Ring struct {
	_    [64]byte
	head uint64   // consumer cursor
	out  [24]byte // consumer-owned copy of the last popped payload

	_    [32]byte
	tail uint64 // producer cursor

	_ [56]byte

	mask uint64
	step uint64
	buf  []slot

	_ [3]uint64
}

// New creates a ring with size slots. size must be a positive power of two.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:registerparams
func New(size int) *Ring {
	if size <= 0 || size&(size-1) != 0 {
		panic("ring: size must be >0 and power of two")
	}

	r := &Ring{
		mask: uint64(size - 1),
		step: uint64(size),
		buf:  make([]slot, size),
	}
	for i := range r.buf {
		r.buf[i].seq = uint64(i)
	}
	return r
}

// Cap returns the number of slots.
func (r *Ring) Cap() int { return int(r.step) }

// Push copies *val into the ring. Returns false when full.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func (r *Ring) Push(val *[24]byte) bool {
	t := r.tail
	s := &r.buf[t&r.mask]
	if atomic.LoadUint64(&s.seq) != t {
		return false
	}
	s.val = *val
	atomic.StoreUint64(&s.seq, t+1)
	r.tail = t + 1
	return true
}

// PushWait pushes *val, spinning while the ring is full.
// Returns false without pushing if *stop becomes non-zero first.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:registerparams
func (r *Ring) PushWait(val *[24]byte, stop *uint32) bool {
	for !r.Push(val) {
		if atomic.LoadUint32(stop) != 0 {
			return false
		}
		cpuRelax()
	}
	return true
}

// Pop returns the next payload or nil when empty.
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func (r *Ring) Pop() *[24]byte {
	h := r.head
	s := &r.buf[h&r.mask]
	if atomic.LoadUint64(&s.seq) != h+1 {
		return nil
	}
	r.out = s.val
	atomic.StoreUint64(&s.seq, h+r.step)
	r.head = h + 1
	return &r.out
}
