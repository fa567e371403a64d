// ════════════════════════════════════════════════════════════════════════════════════════════════
// Epsilon-Greedy Policy
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Action selection over a value row
//
// Description:
//   With probability epsilon a uniformly random action is taken, otherwise the action with
//   the largest value. The comparison is strict, so the lowest index wins ties.
//   Each engine owns its selector and its random source; runs with the same seed and the
//   same access stream make the same decisions.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package policy

import (
	"math/rand"

	"rlpf/action"
)

// Selector picks actions. Not safe for concurrent use.
type Selector struct {
	epsilon float64
	seed    int64
	rng     *rand.Rand
}

// New returns a selector exploring with probability epsilon, seeded with seed.
func New(epsilon float64, seed int64) *Selector {
	return &Selector{epsilon: epsilon, seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Epsilon returns the exploration probability.
func (p *Selector) Epsilon() float64 { return p.epsilon }

// Select returns the chosen action and whether it was an exploratory pick.
// The row is only read.
//
//go:nosplit
func (p *Selector) Select(row *[action.Count]float64) (a int, explored bool) {
	if p.epsilon > 0 && p.rng.Float64() < p.epsilon {
		return p.rng.Intn(action.Count), true
	}
	return Greedy(row), false
}

// Reseed restarts the random sequence from the construction seed.
func (p *Selector) Reseed() { p.rng.Seed(p.seed) }

// Greedy returns the index of the strictly largest value, lowest index on ties.
//
//go:nosplit
//go:inline
func Greedy(row *[action.Count]float64) int {
	best := 0
	for a := 1; a < action.Count; a++ {
		if row[a] > row[best] {
			best = a
		}
	}
	return best
}
