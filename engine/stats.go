package engine

import "sync/atomic"

// Stats is a point-in-time copy of an engine's counters and gauges.
type Stats struct {
	Accesses       uint64 // OnAccess calls
	Decisions      uint64 // actions selected
	Explorations   uint64 // of which random
	Rejected       uint64 // cross-page candidates dropped
	Issued         uint64 // prefetches the host accepted
	Refused        uint64 // prefetches the host refused
	Retirements    uint64 // entries popped from the delay line
	Updates        uint64 // value updates applied
	SkippedUpdates uint64 // retirements without a successor
	Fills          uint64 // OnFill notifications
	Evictions      uint64 // OnEvict notifications
	StateEvictions uint64 // value-table rows dropped by MaxStates
	PCEvictions    uint64 // delta histories dropped by MaxPCs

	States     uint64 // resident value-table rows
	TrackedPCs uint64 // resident delta histories
	QueueDepth uint64 // pending decisions
}

// counters are written by the owning core and read by scrapers.
type counters struct {
	accesses     atomic.Uint64
	decisions    atomic.Uint64
	explorations atomic.Uint64
	rejected     atomic.Uint64
	issued       atomic.Uint64
	refused      atomic.Uint64
	retirements  atomic.Uint64
	updates      atomic.Uint64
	skipped      atomic.Uint64
	fills        atomic.Uint64
	evictions    atomic.Uint64
	stateEvicts  atomic.Uint64
	pcEvicts     atomic.Uint64

	states atomic.Uint64
	pcs    atomic.Uint64
	depth  atomic.Uint64
}

func (c *counters) reset() {
	for _, v := range []*atomic.Uint64{
		&c.accesses, &c.decisions, &c.explorations, &c.rejected, &c.issued, &c.refused,
		&c.retirements, &c.updates, &c.skipped, &c.fills, &c.evictions,
		&c.stateEvicts, &c.pcEvicts,
		&c.states, &c.pcs, &c.depth,
	} {
		v.Store(0)
	}
}

// Stats returns the current counters. Safe from any goroutine.
func (e *Engine) Stats() Stats {
	c := &e.stats
	return Stats{
		Accesses:       c.accesses.Load(),
		Decisions:      c.decisions.Load(),
		Explorations:   c.explorations.Load(),
		Rejected:       c.rejected.Load(),
		Issued:         c.issued.Load(),
		Refused:        c.refused.Load(),
		Retirements:    c.retirements.Load(),
		Updates:        c.updates.Load(),
		SkippedUpdates: c.skipped.Load(),
		Fills:          c.fills.Load(),
		Evictions:      c.evictions.Load(),
		StateEvictions: c.stateEvicts.Load(),
		PCEvictions:    c.pcEvicts.Load(),
		States:         c.states.Load(),
		TrackedPCs:     c.pcs.Load(),
		QueueDepth:     c.depth.Load(),
	}
}
