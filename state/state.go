// ════════════════════════════════════════════════════════════════════════════════════════════════
// State Key
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Learning context abstraction
//
// Description:
//   A State is the (instruction pointer, recent line-delta pattern) pair the value table is
//   indexed by. It is a fixed-size comparable value: map lookup compares PC, Len and every
//   delta slot, so equality is structural and order-sensitive.
//
// Notes:
//   - Slots past Len are always zero, so two keys with the same visible deltas compare equal.
//   - New copies the window; later mutation of the live history never reaches stored keys.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package state

import (
	"rlpf/constants"
	"rlpf/utils"
)

// Depth is the maximum number of deltas carried by a key.
const Depth = constants.HistoryDepth

// State identifies a learning context.
type State struct {
	PC     uint64
	Len    uint8
	Deltas [Depth]int64
}

// New builds the key for pc from the oldest-first delta window.
// At most Depth trailing deltas are kept.
//
//go:nosplit
//go:registerparams
func New(pc uint64, window []int64) State {
	if len(window) > Depth {
		window = window[len(window)-Depth:]
	}
	s := State{PC: pc, Len: uint8(len(window))}
	copy(s.Deltas[:], window)
	return s
}

// Window returns the visible deltas, oldest first.
// The slice aliases s, which is a copy held by the caller.
func (s *State) Window() []int64 {
	return s.Deltas[:s.Len]
}

// String renders "pc=0x401000 [+1 -3]" for logs and the inspect command.
func (s State) String() string {
	b := make([]byte, 0, 64)
	b = append(b, "pc="...)
	b = append(b, utils.Xtoa(s.PC)...)
	b = append(b, " ["...)
	for i, d := range s.Window() {
		if i > 0 {
			b = append(b, ' ')
		}
		if d >= 0 {
			b = append(b, '+')
		}
		b = append(b, utils.Itoa(int(d))...)
	}
	b = append(b, ']')
	return string(b)
}
