// ════════════════════════════════════════════════════════════════════════════════════════════════
// Prefetch Decision Engine
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Per-core online SARSA prefetcher
//
// Description:
//   One Engine owns every piece of learning state for one core: delta histories, the value
//   table, the exploration source and the pending-credit delay line. OnAccess runs the full
//   decision cycle synchronously and never returns an error.
//
// Per-access flow:
//   1. Read the PC's delta window (before this access) and build the state key
//   2. Ensure the state's row and pick an action epsilon-greedily
//   3. Translate to a candidate address. Cross-page candidates are dropped here
//   4. Record the decision, ask the host to prefetch, retire the back if overfull
//   5. Record this access's delta in the PC's window
//
// Concurrency:
//   - OnAccess, OnFill, OnEvict, Reset, Snapshot and Restore belong to the owning goroutine
//   - Stats may be called from any goroutine (counters are atomics)
// ════════════════════════════════════════════════════════════════════════════════════════════════

package engine

import (
	"rlpf/action"
	"rlpf/constants"
	"rlpf/debug"
	"rlpf/history"
	"rlpf/pending"
	"rlpf/policy"
	"rlpf/qtable"
	"rlpf/sarsa"
	"rlpf/state"
	"rlpf/types"
	"rlpf/utils"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// HOST BOUNDARY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Host issues prefetches on the engine's behalf. A false return is a refusal; the engine
// tolerates it and keeps the decision queued for learning.
type Host interface {
	RequestPrefetch(pc, addr, pfAddr uint64, fill types.FillLevel, meta uint32) bool
}

// HostFunc adapts a function to Host.
type HostFunc func(pc, addr, pfAddr uint64, fill types.FillLevel, meta uint32) bool

// RequestPrefetch calls f.
func (f HostFunc) RequestPrefetch(pc, addr, pfAddr uint64, fill types.FillLevel, meta uint32) bool {
	return f(pc, addr, pfAddr, fill, meta)
}

// AcceptAll accepts every request.
var AcceptAll Host = HostFunc(func(uint64, uint64, uint64, types.FillLevel, uint32) bool { return true })

// RewardFunc assigns the reward stored with a decision when it is made.
type RewardFunc func(ev types.AccessEvent, pfAddr uint64, action int) float64

// ZeroReward is the default reward.
func ZeroReward(types.AccessEvent, uint64, int) float64 { return 0 }

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Config fixes an engine's parameters for its lifetime.
type Config struct {
	Name          string  // log tag, e.g. "core3"
	Alpha         float64 // learning rate
	Gamma         float64 // discount
	Epsilon       float64 // exploration probability
	Seed          int64
	QueueCapacity int // K
	MaxStates     int // 0 = unbounded
	MaxPCs        int // 0 = unbounded
	FillLevel     types.FillLevel
	Successor     sarsa.Successor
	Reward        RewardFunc // nil = ZeroReward
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{
		Name:          "core0",
		Alpha:         constants.DefaultAlpha,
		Gamma:         constants.DefaultGamma,
		Epsilon:       constants.DefaultEpsilon,
		Seed:          constants.DefaultSeed,
		QueueCapacity: constants.QueueCapacity,
		FillLevel:     types.FillL2,
		Successor:     sarsa.SuccessorFront,
	}
}

// Params is the learning part of a Config, persisted alongside snapshots.
type Params struct {
	Alpha     float64
	Gamma     float64
	Epsilon   float64
	Queue     int
	Successor string
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ENGINE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Engine is the decision engine of one core.
type Engine struct {
	cfg     Config
	host    Host
	reward  RewardFunc
	history *history.Store
	table   *qtable.Table
	policy  *policy.Selector
	queue   *pending.Queue
	learner sarsa.Learner
	stats   counters
}

// New builds an engine. A nil host behaves like AcceptAll.
func New(cfg Config, host Host) *Engine {
	if host == nil {
		host = AcceptAll
	}
	reward := cfg.Reward
	if reward == nil {
		reward = ZeroReward
	}
	if cfg.Name == "" {
		cfg.Name = "core0"
	}
	return &Engine{
		cfg:     cfg,
		host:    host,
		reward:  reward,
		history: history.New(cfg.MaxPCs),
		table:   qtable.New(cfg.MaxStates),
		policy:  policy.New(cfg.Epsilon, cfg.Seed),
		queue:   pending.New(cfg.QueueCapacity),
		learner: sarsa.Learner{Alpha: cfg.Alpha, Gamma: cfg.Gamma, Mode: cfg.Successor},
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Params returns the persisted learning parameters.
func (e *Engine) Params() Params {
	return Params{
		Alpha:     e.cfg.Alpha,
		Gamma:     e.cfg.Gamma,
		Epsilon:   e.cfg.Epsilon,
		Queue:     e.cfg.QueueCapacity,
		Successor: e.cfg.Successor.String(),
	}
}

// OnAccess runs one decision cycle for ev.
//
//go:registerparams
func (e *Engine) OnAccess(ev types.AccessEvent) {
	e.stats.accesses.Add(1)
	line := action.Line(ev.Addr)

	w := e.history.Window(ev.PC)
	s := state.New(ev.PC, w.Deltas())
	e.table.Ensure(s)
	row := e.table.Row(s)
	a, explored := e.policy.Select((*[action.Count]float64)(&row))
	e.stats.decisions.Add(1)
	if explored {
		e.stats.explorations.Add(1)
	}

	pf := action.Translate(line, a)
	if !action.SamePage(pf, ev.Addr) {
		e.stats.rejected.Add(1)
	} else {
		e.queue.PushFront(pending.Entry{State: s, Action: uint8(a), Reward: e.reward(ev, pf, a)})
		if e.host.RequestPrefetch(ev.PC, ev.Addr, pf, e.cfg.FillLevel, uint32(a)) {
			e.stats.issued.Add(1)
		} else {
			e.stats.refused.Add(1)
		}
		if e.queue.Overfull() {
			e.retire()
		}
	}

	e.history.Observe(ev.PC, line)
	e.publish()
}

func (e *Engine) retire() {
	res, ok := e.learner.Retire(e.queue, e.table)
	if !ok {
		return
	}
	e.stats.retirements.Add(1)
	if !res.Updated {
		e.stats.skipped.Add(1)
		debug.DropMessage("RETIRE", e.cfg.Name+" no successor for "+res.Retired.State.String()+", update skipped")
		return
	}
	e.stats.updates.Add(1)
}

//go:nosplit
//go:inline
func (e *Engine) publish() {
	e.stats.states.Store(uint64(e.table.Len()))
	e.stats.pcs.Store(uint64(e.history.Len()))
	e.stats.depth.Store(uint64(e.queue.Len()))
	e.stats.stateEvicts.Store(e.table.Evictions())
	e.stats.pcEvicts.Store(e.history.Evictions())
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// LIFECYCLE HOOKS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Initialize announces the engine's parameters.
func (e *Engine) Initialize() {
	debug.DropMessage("INIT", e.cfg.Name+
		" alpha="+utils.Ftoa(e.cfg.Alpha, 4)+
		" gamma="+utils.Ftoa(e.cfg.Gamma, 4)+
		" epsilon="+utils.Ftoa(e.cfg.Epsilon, 4)+
		" queue="+utils.Itoa(e.cfg.QueueCapacity)+
		" successor="+e.cfg.Successor.String()+
		" fill="+e.cfg.FillLevel.String())
}

// OnFill is notified when the host fills a line. No learning happens here.
func (e *Engine) OnFill(addr uint64, fill types.FillLevel, prefetch bool, evicted uint64, meta uint32) {
	e.stats.fills.Add(1)
}

// OnEvict is notified when the host evicts a line. No learning happens here.
func (e *Engine) OnEvict(addr uint64) {
	e.stats.evictions.Add(1)
}

// FinalStats logs and returns the counters.
func (e *Engine) FinalStats() Stats {
	st := e.Stats()
	debug.DropMessage("STATS", e.cfg.Name+
		" accesses="+utils.Utoa(st.Accesses)+
		" issued="+utils.Utoa(st.Issued)+
		" refused="+utils.Utoa(st.Refused)+
		" rejected="+utils.Utoa(st.Rejected)+
		" updates="+utils.Utoa(st.Updates)+
		" skipped="+utils.Utoa(st.SkippedUpdates)+
		" states="+utils.Utoa(st.States))
	return st
}

// Reset drops all learned state and counters. The exploration source restarts from its seed.
func (e *Engine) Reset() {
	e.history.Reset()
	e.table.Reset()
	e.queue.Reset()
	e.policy.Reseed()
	e.stats.reset()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SNAPSHOTS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Row is one persisted value-table row.
type Row struct {
	State  state.State
	Values qtable.Row
}

// Snapshot copies the value table, most recently used states first.
func (e *Engine) Snapshot() []Row {
	rows := make([]Row, 0, e.table.Len())
	e.table.Each(func(s state.State, r qtable.Row) bool {
		rows = append(rows, Row{State: s, Values: r})
		return true
	})
	return rows
}

// Restore loads rows into the value table. Rows are applied last to first so the
// recency order of a Snapshot survives the round trip.
func (e *Engine) Restore(rows []Row) {
	for i := len(rows) - 1; i >= 0; i-- {
		e.table.Set(rows[i].State, rows[i].Values)
	}
	e.publish()
}

// Value returns V(s, a) and whether s has a row.
func (e *Engine) Value(s state.State, a int) (float64, bool) {
	if !e.table.Has(s) {
		return 0, false
	}
	return e.table.Read(s, a), true
}

// Window returns the current delta window of pc, oldest first.
func (e *Engine) Window(pc uint64) []int64 {
	w := e.history.Window(pc)
	return append([]int64(nil), w.Deltas()...)
}
