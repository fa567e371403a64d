// ════════════════════════════════════════════════════════════════════════════════════════════════
// Action Space & Address Mapping
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Fixed prefetch offset enumeration + page-boundary guard
//
// Description:
//   The policy picks one of ActionCount relative cache-line offsets. Translate turns the
//   picked offset into a byte address, SamePage rejects candidates that leave the page of
//   the triggering access. Both are pure and allocation free.
//
// Notes:
//   - There is no "do not prefetch" action: every decision names a non-zero offset.
//   - Offsets are signed line counts; wraparound below line 0 is not special-cased,
//     SamePage rejects it because the page number changes.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package action

import "rlpf/constants"

// Count is the size of the action set.
const Count = constants.ActionCount

// Offsets maps an action index to its cache-line offset.
var Offsets = [Count]int64{-6, -3, -1, +1, +3, +6}

// Translate returns the byte address of line+Offsets[a].
// a must be in [0, Count).
//
//go:nosplit
//go:inline
//go:registerparams
func Translate(line uint64, a int) uint64 {
	return uint64(int64(line)+Offsets[a]) << constants.BlockShift
}

// SamePage reports whether candidate and original fall in the same page.
//
//go:nosplit
//go:inline
//go:registerparams
func SamePage(candidate, original uint64) bool {
	return candidate>>constants.PageShift == original>>constants.PageShift
}

// Line converts a byte address to its cache-line address.
//
//go:nosplit
//go:inline
func Line(addr uint64) uint64 {
	return addr >> constants.BlockShift
}
