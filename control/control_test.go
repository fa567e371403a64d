// ════════════════════════════════════════════════════════════════════════════════════════════════
// 🧪 TEST SUITE: RUN CONTROL FLAGS
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: control
//
// Description:
//   Flag transitions, cooldown behaviour, shutdown idempotence and concurrent access between
//   a signalling goroutine and polling consumers.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package control

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func withCooldown(t *testing.T, d time.Duration) {
	t.Helper()
	prev := cooldownNs
	cooldownNs = int64(d)
	Reset()
	t.Cleanup(func() {
		cooldownNs = prev
		Reset()
	})
}

// ============================================================================
// UNIT TESTS
// ============================================================================

func TestInitialState(t *testing.T) {
	withCooldown(t, time.Second)
	stopPtr, hotPtr := Flags()
	if atomic.LoadUint32(stopPtr) != 0 || atomic.LoadUint32(hotPtr) != 0 {
		t.Fatal("flags not clear after Reset")
	}
	if Stopping() {
		t.Fatal("Stopping() true before Shutdown")
	}
}

func TestSignalActivitySetsHot(t *testing.T) {
	withCooldown(t, time.Second)
	SignalActivity()
	_, hotPtr := Flags()
	if atomic.LoadUint32(hotPtr) != 1 {
		t.Fatal("hot not set")
	}
	PollCooldown()
	if atomic.LoadUint32(hotPtr) != 1 {
		t.Fatal("hot cleared before cooldown elapsed")
	}
}

func TestCooldownClearsHot(t *testing.T) {
	withCooldown(t, time.Millisecond)
	SignalActivity()
	time.Sleep(5 * time.Millisecond)
	PollCooldown()
	_, hotPtr := Flags()
	if atomic.LoadUint32(hotPtr) != 0 {
		t.Fatal("hot still set after cooldown")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	withCooldown(t, time.Second)
	Shutdown()
	Shutdown()
	stopPtr, _ := Flags()
	if !Stopping() || atomic.LoadUint32(stopPtr) != 1 {
		t.Fatal("stop flag not set")
	}
	Reset()
	if Stopping() {
		t.Fatal("Reset did not clear stop")
	}
}

func TestFlagsStablePointers(t *testing.T) {
	s1, h1 := Flags()
	s2, h2 := Flags()
	if s1 != s2 || h1 != h2 {
		t.Fatal("Flags returned different addresses")
	}
}

// ============================================================================
// CONCURRENCY
// ============================================================================

func TestShutdownObservedByPollers(t *testing.T) {
	withCooldown(t, time.Second)
	stopPtr, _ := Flags()

	const pollers = 8
	var wg sync.WaitGroup
	var seen atomic.Int32
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for atomic.LoadUint32(stopPtr) == 0 {
				PollCooldown()
			}
			seen.Add(1)
		}()
	}
	for i := 0; i < 1000; i++ {
		SignalActivity()
	}
	Shutdown()
	wg.Wait()
	if seen.Load() != pollers {
		t.Fatalf("%d of %d pollers observed shutdown", seen.Load(), pollers)
	}
}

func TestShutdownWG(t *testing.T) {
	var done atomic.Bool
	ShutdownWG.Add(1)
	go func() {
		defer ShutdownWG.Done()
		time.Sleep(time.Millisecond)
		done.Store(true)
	}()
	ShutdownWG.Wait()
	if !done.Load() {
		t.Fatal("Wait returned before service finished")
	}
}

// ============================================================================
// BENCHMARKS
// ============================================================================

func BenchmarkSignalActivity(b *testing.B) {
	for i := 0; i < b.N; i++ {
		SignalActivity()
	}
}

func BenchmarkPollCooldown(b *testing.B) {
	SignalActivity()
	for i := 0; i < b.N; i++ {
		PollCooldown()
	}
}
