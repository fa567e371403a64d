package sim

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"rlpf/config"
	"rlpf/control"
	"rlpf/debug"
	"rlpf/engine"
	"rlpf/ring24"
	"rlpf/trace"
	"rlpf/types"
	"rlpf/utils"
)

// ============================================================================
// MULTI-CORE REPLAY
// ============================================================================
//
// Producer (caller goroutine)          Consumers (one pinned goroutine per core)
//   trace.Reader.Next                    ring24.Ring.Pop
//   route by CPU % cores                 types.Unpack
//   Pack -> ring24.Ring.PushWait         Core.Access -> engine.OnAccess
//   end marker per ring                  exit on end marker
//
// Each engine is touched only by its consumer until the consumer exits, so
// engines keep their single-threaded contract. Shutdown (signal or context)
// raises the runner's stop flag; consumers exit without draining and the
// report is marked interrupted.

// signalEvery is the number of pushed events between producer activity signals.
const signalEvery = 1024

// Runner replays one trace across the configured cores.
type Runner struct {
	cfg   config.Config
	cores []*Core
	rings []*ring24.Ring
	stop  uint32
}

// NewRunner builds cores and rings from a validated configuration.
func NewRunner(cfg config.Config) *Runner {
	r := &Runner{cfg: cfg}
	for i := 0; i < cfg.Sim.Cores; i++ {
		r.cores = append(r.cores, NewCore(i, cfg))
		r.rings = append(r.rings, ring24.New(cfg.Sim.RingSize))
	}
	return r
}

// Cores returns the simulated cores. Touch their engines only before Run or after it returns.
func (r *Runner) Cores() []*Core { return r.cores }

// Run replays src to completion, cancellation or shutdown.
// A decode error stops the replay and is returned with the partial report.
// Shutdown flags left over from an earlier replay are cleared first; a signal
// that arrives before Run is still seen through ctx.
func (r *Runner) Run(ctx context.Context, src trace.Reader) (Report, error) {
	control.Reset()
	atomic.StoreUint32(&r.stop, 0)
	_, hot := control.Flags()
	start := time.Now()

	done := make([]chan struct{}, len(r.cores))
	for i, c := range r.cores {
		c.Engine().Initialize()
		done[i] = make(chan struct{})
		core := c
		ring24.PinnedConsumer(i, r.rings[i], &r.stop, hot, func(p *[24]byte) bool {
			if types.IsEnd(p) {
				return false
			}
			core.Access(types.Unpack(p))
			return true
		}, done[i])
	}

	var (
		events      uint64
		interrupted bool
		runErr      error
	)
	for {
		if control.Stopping() || ctx.Err() != nil {
			interrupted = true
			break
		}
		ev, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			runErr = err
			interrupted = true
			break
		}
		b := ev.Pack()
		if !r.rings[int(ev.CPU)%len(r.rings)].PushWait(&b, &r.stop) {
			interrupted = true
			break
		}
		if events++; events%signalEvery == 0 {
			control.SignalActivity()
		}
	}

	if interrupted {
		atomic.StoreUint32(&r.stop, 1)
		debug.DropMessage("REPLAY", "interrupted after "+utils.Utoa(events)+" events")
	} else {
		end := types.EndMarker()
		for _, ring := range r.rings {
			ring.PushWait(&end, &r.stop)
		}
	}
	for _, d := range done {
		<-d
	}

	rep := Report{Events: events, Interrupted: interrupted, Elapsed: time.Since(start)}
	for _, c := range r.cores {
		rep.Cores = append(rep.Cores, CoreReport{
			Core:   c.ID(),
			Engine: c.Engine().FinalStats(),
			Cache:  c.Cache().Stats(),
		})
	}
	return rep, runErr
}

// Report summarizes a replay.
type Report struct {
	Cores       []CoreReport
	Events      uint64
	Interrupted bool
	Elapsed     time.Duration
}

// CoreReport is one core's outcome.
type CoreReport struct {
	Core   int
	Engine engine.Stats
	Cache  CacheStats
}

// Totals sums the per-core counters. Gauges are summed too.
func (r Report) Totals() (engine.Stats, CacheStats) {
	var e engine.Stats
	var c CacheStats
	for _, cr := range r.Cores {
		s := cr.Engine
		e.Accesses += s.Accesses
		e.Decisions += s.Decisions
		e.Explorations += s.Explorations
		e.Rejected += s.Rejected
		e.Issued += s.Issued
		e.Refused += s.Refused
		e.Retirements += s.Retirements
		e.Updates += s.Updates
		e.SkippedUpdates += s.SkippedUpdates
		e.Fills += s.Fills
		e.Evictions += s.Evictions
		e.StateEvictions += s.StateEvictions
		e.PCEvictions += s.PCEvictions
		e.States += s.States
		e.TrackedPCs += s.TrackedPCs
		e.QueueDepth += s.QueueDepth

		c.DemandHits += cr.Cache.DemandHits
		c.DemandMisses += cr.Cache.DemandMisses
		c.PrefetchFills += cr.Cache.PrefetchFills
		c.Useful += cr.Cache.Useful
		c.Useless += cr.Cache.Useless
	}
	return e, c
}

var (
	reportHeader = [...]string{"core", "accesses", "issued", "refused", "rejected", "updates", "states", "hit%", "acc%"}
	reportWidths = [...]int{4, 10, 8, 9, 10, 9, 8, 7, 6}
)

// WriteTo renders the report as a plain-text table.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b []byte
	line := func(cells [len(reportHeader)]string) {
		for i, cell := range cells {
			b = append(b, pad(cell, reportWidths[i])...)
		}
		b = append(b, '\n')
	}
	row := func(name string, e engine.Stats, c CacheStats) {
		line([len(reportHeader)]string{
			name,
			utils.Utoa(e.Accesses),
			utils.Utoa(e.Issued),
			utils.Utoa(e.Refused),
			utils.Utoa(e.Rejected),
			utils.Utoa(e.Updates),
			utils.Utoa(e.States),
			utils.Ftoa(100*c.HitRate(), 1),
			utils.Ftoa(100*c.Accuracy(), 1),
		})
	}

	line(reportHeader)
	for _, cr := range r.Cores {
		row(utils.Itoa(cr.Core), cr.Engine, cr.Cache)
	}
	if len(r.Cores) > 1 {
		e, c := r.Totals()
		row("all", e, c)
	}
	b = append(b, "events="+utils.Utoa(r.Events)+" elapsed="+r.Elapsed.Round(time.Millisecond).String()...)
	if r.Interrupted {
		b = append(b, " (interrupted)"...)
	}
	b = append(b, '\n')
	n, err := w.Write(b)
	return int64(n), err
}

// pad right-aligns s in width columns and adds one separating space.
func pad(s string, width int) string {
	for len(s) < width {
		s = " " + s
	}
	return s + " "
}
