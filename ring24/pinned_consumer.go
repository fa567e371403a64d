// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ CORE-PINNED CONSUMER
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Per-core replay worker
//
// Description:
//   Runs one core's handler on a locked OS thread pinned to a CPU. Every spinBudget empty
//   polls the loop issues a CPU relax hint; once the producer has gone cold and no payload
//   arrived within hotWindow it also yields to the scheduler. Idle polls drive the global
//   cooldown.
//
// Termination:
//   - the handler returns false (end-of-stream marker), or
//   - *stop becomes non-zero (shutdown)
//   done is closed in both cases.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package ring24

import (
	"runtime"
	"sync/atomic"
	"time"

	"rlpf/control"
)

const (
	// hotWindow keeps the loop spinning after the last payload.
	hotWindow = 50 * time.Millisecond

	// spinBudget is the number of empty polls between CPU relax hints.
	spinBudget = 224
)

// PinnedConsumer starts the consumer goroutine for ring on CPU core.
//
//go:norace
//go:nocheckptr
//go:registerparams
func PinnedConsumer(
	core int,
	ring *Ring,
	stop *uint32,
	hot *uint32,
	handler func(*[24]byte) bool,
	done chan<- struct{},
) {
	go func() {
		runtime.LockOSThread()
		setAffinity(core)

		// No UnlockOSThread: the pinned thread is discarded when the goroutine exits.
		defer close(done)

		var miss int
		lastHit := time.Now()

		for {
			if atomic.LoadUint32(stop) != 0 {
				return
			}

			if p := ring.Pop(); p != nil {
				if !handler(p) {
					return
				}
				miss = 0
				lastHit = time.Now()
				continue
			}

			control.PollCooldown()
			if miss++; miss < spinBudget {
				continue
			}
			miss = 0
			cpuRelax()
			if atomic.LoadUint32(hot) == 0 && time.Since(lastHit) > hotWindow {
				runtime.Gosched()
			}
		}
	}()
}
