// control.go - Global run flags and activity management for replay workers
// ============================================================================
// RUN CONTROL
// ============================================================================
//
// Process-wide signaling between the trace producer, the pinned per-core
// consumers and the CLI's signal handler.
//
// Flags:
//   • hot  - 1 while the producer is feeding events; consumers spin instead of backing off
//   • stop - 1 once shutdown was requested; the producer stops reading the trace
//
// Threading model:
//   • The producer calls SignalActivity for every batch it pushes
//   • Consumers poll the flags via Flags() and call PollCooldown while idle
//   • SIGINT/SIGTERM handlers call Shutdown; background services register in
//     ShutdownWG and are awaited before exit
//
// All flag access is atomic: producer, consumers and signal handler run on
// different OS threads.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// ============================================================================
// GLOBAL STATE
// ============================================================================

var (
	hot  uint32 // 1 = producer active
	stop uint32 // 1 = shutdown requested

	lastHot    int64                    // UnixNano of last producer activity
	cooldownNs = int64(1 * time.Second) // idle time before hot clears

	// ShutdownWG tracks background services (metrics endpoint) that must
	// finish before the process exits.
	ShutdownWG sync.WaitGroup
)

// ============================================================================
// ACTIVITY SIGNALING
// ============================================================================

// SignalActivity marks the producer as active.
//
//go:nosplit
//go:inline
func SignalActivity() {
	atomic.StoreInt64(&lastHot, time.Now().UnixNano())
	atomic.StoreUint32(&hot, 1)
}

// PollCooldown clears the hot flag once the producer has been idle for the cooldown.
//
//go:nosplit
//go:inline
func PollCooldown() {
	if atomic.LoadUint32(&hot) == 1 && time.Now().UnixNano()-atomic.LoadInt64(&lastHot) > cooldownNs {
		atomic.StoreUint32(&hot, 0)
	}
}

// ============================================================================
// SHUTDOWN
// ============================================================================

// Shutdown requests termination. Idempotent.
//
//go:nosplit
//go:inline
func Shutdown() {
	atomic.StoreUint32(&stop, 1)
}

// Stopping reports whether Shutdown was called.
//
//go:nosplit
//go:inline
func Stopping() bool {
	return atomic.LoadUint32(&stop) == 1
}

// Reset clears both flags. Used between replays in one process and by tests.
func Reset() {
	atomic.StoreUint32(&stop, 0)
	atomic.StoreUint32(&hot, 0)
	atomic.StoreInt64(&lastHot, 0)
}

// ============================================================================
// FLAG ACCESS
// ============================================================================

// Flags returns (*stop, *hot) for PinnedConsumer. Read them with atomic loads.
//
//go:nosplit
//go:inline
func Flags() (*uint32, *uint32) {
	return &stop, &hot
}
