// ════════════════════════════════════════════════════════════════════════════════════════════════
// SARSA Learner
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Credit assignment on retirement from the delay line
//
// Description:
//   When the delay line is overfull its oldest decision (S1, A1, R1) is popped and paired
//   with a successor (S2, A2) read from the queue without popping it:
//
//     V(S1,A1) ← V(S1,A1) + α · (R1 + γ · V(S2,A2) − V(S1,A1))
//
//   SuccessorFront pairs with the newest decision in the queue. SuccessorAdjacent pairs
//   with the decision enqueued right after the retired one (the new back).
//
// Notes:
//   - If the pop leaves the queue empty there is no successor and the table is untouched.
//   - S2 is ensured and read before S1 is ensured, so a bounded table holding a single
//     row still updates a live S1.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package sarsa

import (
	"rlpf/pending"
	"rlpf/qtable"
)

// Successor selects which queued decision bootstraps a retirement.
type Successor uint8

const (
	SuccessorFront    Successor = iota // newest queued decision
	SuccessorAdjacent                  // decision enqueued right after the retired one
)

// String returns the config name.
func (s Successor) String() string {
	if s == SuccessorAdjacent {
		return "adjacent"
	}
	return "front"
}

// ParseSuccessor maps a config name to its Successor.
func ParseSuccessor(name string) (Successor, bool) {
	switch name {
	case "front", "":
		return SuccessorFront, true
	case "adjacent":
		return SuccessorAdjacent, true
	}
	return 0, false
}

// Update returns the one-step SARSA target blend for v1.
//
//go:nosplit
//go:inline
//go:registerparams
func Update(v1, r, v2, alpha, gamma float64) float64 {
	return v1 + alpha*(r+gamma*v2-v1)
}

// Result describes one retirement.
type Result struct {
	Retired   pending.Entry
	Successor pending.Entry
	Updated   bool    // false when no successor existed
	Old, New  float64 // V(S1,A1) before and after
}

// Learner applies updates to one table.
type Learner struct {
	Alpha float64
	Gamma float64
	Mode  Successor
}

// Retire pops the back of q and updates t.
// ok is false when q was empty and nothing was retired.
//
//go:nosplit
func (l *Learner) Retire(q *pending.Queue, t *qtable.Table) (res Result, ok bool) {
	e1, ok := q.PopBack()
	if !ok {
		return res, false
	}
	res.Retired = e1

	var e2 pending.Entry
	var has bool
	if l.Mode == SuccessorAdjacent {
		e2, has = q.Back()
	} else {
		e2, has = q.Front()
	}
	if !has {
		return res, true
	}
	res.Successor = e2

	t.Ensure(e2.State)
	v2 := t.Read(e2.State, int(e2.Action))
	t.Ensure(e1.State)
	res.Old = t.Read(e1.State, int(e1.Action))
	res.New = Update(res.Old, e1.Reward, v2, l.Alpha, l.Gamma)
	t.Write(e1.State, int(e1.Action), res.New)
	res.Updated = true
	return res, true
}
