// ════════════════════════════════════════════════════════════════════════════════════════════════
// Prometheus Export
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Pull-based view over per-core engine counters
//
// Description:
//   Collector reads engine.Stats at scrape time and emits const metrics labelled by core.
//   Nothing is recorded on the decision path: the engine keeps its own atomic counters
//   and the scrape goroutine only loads them.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"rlpf/engine"
)

// Source is one core's counter snapshot function.
type Source struct {
	Core  string
	Stats func() engine.Stats
}

type metric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(*engine.Stats) uint64
}

// Collector implements prometheus.Collector over a fixed set of sources.
type Collector struct {
	sources []Source
	metrics []metric
}

// NewCollector builds a collector whose metric names start with namespace_.
func NewCollector(namespace string, sources ...Source) *Collector {
	c := &Collector{sources: sources}
	counter := func(name, help string, v func(*engine.Stats) uint64) {
		c.add(namespace, name+"_total", help, prometheus.CounterValue, v)
	}
	gauge := func(name, help string, v func(*engine.Stats) uint64) {
		c.add(namespace, name, help, prometheus.GaugeValue, v)
	}

	counter("accesses", "Demand accesses observed.", func(s *engine.Stats) uint64 { return s.Accesses })
	counter("decisions", "Actions selected by the policy.", func(s *engine.Stats) uint64 { return s.Decisions })
	counter("explorations", "Decisions taken by random exploration.", func(s *engine.Stats) uint64 { return s.Explorations })
	counter("rejected", "Candidates dropped for crossing a page.", func(s *engine.Stats) uint64 { return s.Rejected })
	counter("issued", "Prefetch requests accepted by the host.", func(s *engine.Stats) uint64 { return s.Issued })
	counter("refused", "Prefetch requests refused by the host.", func(s *engine.Stats) uint64 { return s.Refused })
	counter("retirements", "Pending entries retired from the queue.", func(s *engine.Stats) uint64 { return s.Retirements })
	counter("updates", "SARSA value updates applied.", func(s *engine.Stats) uint64 { return s.Updates })
	counter("skipped_updates", "Retirements without a successor.", func(s *engine.Stats) uint64 { return s.SkippedUpdates })
	counter("fills", "Fill notifications from the host.", func(s *engine.Stats) uint64 { return s.Fills })
	counter("evictions", "Eviction notifications from the host.", func(s *engine.Stats) uint64 { return s.Evictions })
	counter("state_evictions", "Value-table rows dropped by the state bound.", func(s *engine.Stats) uint64 { return s.StateEvictions })
	counter("pc_evictions", "Delta histories dropped by the PC bound.", func(s *engine.Stats) uint64 { return s.PCEvictions })
	gauge("states", "Resident value-table rows.", func(s *engine.Stats) uint64 { return s.States })
	gauge("tracked_pcs", "Program counters with delta history.", func(s *engine.Stats) uint64 { return s.TrackedPCs })
	gauge("queue_depth", "Entries in the pending queue.", func(s *engine.Stats) uint64 { return s.QueueDepth })
	return c
}

func (c *Collector) add(namespace, name, help string, kind prometheus.ValueType, v func(*engine.Stats) uint64) {
	c.metrics = append(c.metrics, metric{
		desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "engine", name), help, []string{"core"}, nil),
		kind:  kind,
		value: v,
	})
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, src := range c.sources {
		st := src.Stats()
		for _, m := range c.metrics {
			ch <- prometheus.MustNewConstMetric(m.desc, m.kind, float64(m.value(&st)), src.Core)
		}
	}
}
