// ════════════════════════════════════════════════════════════════════════════════════════════════
// RL Prefetch Engine - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Online SARSA Prefetch Decision Engine
// Component: CLI & Replay Orchestration
//
// Description:
//   Command-line front end. "run" replays an access trace through one learning engine per
//   simulated core, "inspect" reads stored value-table snapshots.
//   Bootstrap → Warm Start → Memory Cleanup → Replay → Snapshot
//
// Architecture:
//   - Phase 0: configuration (defaults, file, environment, flags)
//   - Phase 1: optional warm start from the newest snapshot of each core
//   - Phase 2: garbage collection before the replay so the hot loop starts clean
//   - Phase 3: replay on pinned consumers, then persist and report
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rlpf/control"
	"rlpf/debug"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

var (
	rootCmd = &cobra.Command{
		Use:           "rlpf",
		Short:         "Reinforcement-learning prefetch decision engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Replay a memory-access trace through per-core learning engines",
		Args:  cobra.NoArgs,
		RunE:  runReplay, // cmd_run.go
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "List stored snapshots or print the strongest rows of one",
		Args:  cobra.NoArgs,
		RunE:  runInspect, // cmd_inspect.go
	}
)

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.trace, "trace", "", "access trace (.txt, .jsonl)")
	f.StringVar(&runFlags.config, "config", "", "configuration file (.yaml, .json)")
	f.IntVar(&runFlags.cores, "cores", 0, "simulated cores (overrides config)")
	f.StringVar(&runFlags.snapshot, "snapshot", "", "snapshot database (overrides config)")
	f.BoolVar(&runFlags.warm, "warm", false, "restore each core from its newest snapshot")
	f.StringVar(&runFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	_ = runCmd.MarkFlagRequired("trace")

	f = inspectCmd.Flags()
	f.StringVar(&inspectFlags.snapshot, "snapshot", "", "snapshot database")
	f.Int64Var(&inspectFlags.id, "id", 0, "snapshot id (0 lists all snapshots)")
	f.IntVar(&inspectFlags.top, "top", 10, "rows to print, strongest first")
	_ = inspectCmd.MarkFlagRequired("snapshot")

	rootCmd.AddCommand(runCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		debug.DropError("FATAL", err)
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SYSTEM LIFECYCLE MANAGEMENT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// setupSignalHandling turns SIGINT/SIGTERM into control.Shutdown plus cancel.
// The replay stops, snapshots are still written, and the returned func
// detaches the handler.
func setupSignalHandling(cancel context.CancelFunc) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigChan:
			debug.DropMessage("SIGNAL", "Received interrupt, stopping replay")
			control.Shutdown()
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
