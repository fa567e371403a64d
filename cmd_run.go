package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"runtime"
	rtdebug "runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"rlpf/config"
	"rlpf/constants"
	"rlpf/control"
	"rlpf/debug"
	"rlpf/metrics"
	"rlpf/sim"
	"rlpf/store"
	"rlpf/trace"
	"rlpf/utils"
)

var runFlags struct {
	trace       string
	config      string
	cores       int
	snapshot    string
	warm        bool
	metricsAddr string
}

// runReplay is the handler for "rlpf run".
func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runFlags.config)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("cores") {
		cfg.Sim.Cores = runFlags.cores
	}
	if flags.Changed("snapshot") {
		cfg.Store.Path = runFlags.snapshot
	}
	if flags.Changed("warm") {
		cfg.Store.Warm = runFlags.warm
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = runFlags.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	detach := setupSignalHandling(cancel)
	defer detach()

	rep, err := replay(ctx, cfg, runFlags.trace)
	if err != nil && rep.Events == 0 {
		return err
	}
	if _, werr := rep.WriteTo(cmd.OutOrStdout()); werr != nil && err == nil {
		err = werr
	}
	return err
}

// replay runs one trace end to end: warm start, replay, snapshot.
// The report is valid even when an error is returned.
func replay(ctx context.Context, cfg config.Config, tracePath string) (sim.Report, error) {
	src, err := trace.Open(tracePath)
	if err != nil {
		return sim.Report{}, err
	}
	defer src.Close()

	runner := sim.NewRunner(cfg)
	debug.DropMessage("LOADED", utils.Itoa(cfg.Sim.Cores)+" cores, trace "+tracePath)

	var st *store.Store
	if cfg.Store.Path != "" {
		if st, err = store.Open(cfg.Store.Path); err != nil {
			return sim.Report{}, err
		}
		defer st.Close()
		if cfg.Store.Warm {
			if err := warmStart(ctx, st, runner); err != nil {
				return sim.Report{}, err
			}
		}
	}

	if cfg.Metrics.Addr != "" {
		_, stop, err := serveMetrics(cfg.Metrics.Addr, runner)
		if err != nil {
			return sim.Report{}, err
		}
		defer stop()
	}

	// Warm-start rows and decoder buffers are garbage by now.
	runtime.GC()
	rtdebug.FreeOSMemory()

	rep, runErr := runner.Run(ctx, src)

	if st != nil {
		// Persist even after an interrupt; the learned rows are still valid.
		if err := saveSnapshots(context.WithoutCancel(ctx), st, runner); err != nil && runErr == nil {
			runErr = err
		}
	}
	return rep, runErr
}

// warmStart restores every core from its newest snapshot. Cores without one start cold.
func warmStart(ctx context.Context, st *store.Store, r *sim.Runner) error {
	for _, c := range r.Cores() {
		eng := c.Engine()
		name := eng.Config().Name

		id, err := st.Latest(ctx, c.ID())
		if errors.Is(err, store.ErrNoSnapshot) {
			debug.DropMessage("WARM", name+" no snapshot, cold start")
			continue
		}
		if err != nil {
			return err
		}
		snap, err := st.Load(ctx, id)
		if err != nil {
			return err
		}
		if snap.Params != eng.Params() {
			debug.DropMessage("WARM", name+" snapshot "+utils.Itoa(int(id))+" was learned with different parameters")
		}
		eng.Restore(snap.Rows)
		debug.DropMessage("WARM", name+" restored "+utils.Itoa(len(snap.Rows))+" states from snapshot "+utils.Itoa(int(id)))
	}
	return nil
}

// saveSnapshots stores one snapshot per core.
func saveSnapshots(ctx context.Context, st *store.Store, r *sim.Runner) error {
	for _, c := range r.Cores() {
		eng := c.Engine()
		rows := eng.Snapshot()
		id, err := st.Save(ctx, c.ID(), eng.Params(), rows)
		if err != nil {
			return err
		}
		debug.DropMessage("SNAPSHOT", eng.Config().Name+" saved "+utils.Itoa(len(rows))+" states as "+utils.Itoa(int(id)))
	}
	return nil
}

// serveMetrics exposes the runner's engines on addr/metrics until stop is
// called and returns the bound address. The server is tracked by control.ShutdownWG.
func serveMetrics(addr string, r *sim.Runner) (bound string, stop func(), err error) {
	sources := make([]metrics.Source, 0, len(r.Cores()))
	for _, c := range r.Cores() {
		eng := c.Engine()
		sources = append(sources, metrics.Source{Core: eng.Config().Name, Stats: eng.Stats})
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector(constants.MetricsNamespace, sources...),
		collectors.NewGoCollector(),
	)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	control.ShutdownWG.Add(1)
	go func() {
		defer control.ShutdownWG.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			debug.DropError("METRICS", err)
		}
	}()
	bound = ln.Addr().String()
	debug.DropMessage("METRICS", "serving on "+bound)

	return bound, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		control.ShutdownWG.Wait()
	}, nil
}
