// ============================================================================
// PINNED CONSUMER LIFECYCLE
// ============================================================================
//
// Delivery order, termination by handler and by stop flag, and payloads
// pushed before the consumer started.

package ring24

import (
	"sync/atomic"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("consumer did not exit")
	}
}

func TestConsumerDeliversInOrderAndEndsOnHandler(t *testing.T) {
	r := New(16)
	var stop, hot uint32
	done := make(chan struct{})
	var got []byte

	PinnedConsumer(0, r, &stop, &hot, func(p *[24]byte) bool {
		if p[0] == 0xFF {
			return false
		}
		got = append(got, p[0])
		return true
	}, done)

	for i := 0; i < 100; i++ {
		r.PushWait(testData(byte(i)), &stop)
	}
	end := [24]byte{0xFF}
	r.PushWait(&end, &stop)
	waitDone(t, done)

	if len(got) != 100 {
		t.Fatalf("delivered %d payloads, want 100", len(got))
	}
	for i, v := range got {
		if v != byte(i) {
			t.Fatalf("payload %d = %d", i, v)
		}
	}
}

func TestConsumerStopsOnFlag(t *testing.T) {
	r := New(4)
	var stop, hot uint32
	done := make(chan struct{})
	PinnedConsumer(1, r, &stop, &hot, func(*[24]byte) bool { return true }, done)

	time.Sleep(10 * time.Millisecond)
	atomic.StoreUint32(&stop, 1)
	waitDone(t, done)
}

func TestConsumerDrainsPrepushed(t *testing.T) {
	r := New(8)
	for i := 0; i < 8; i++ {
		r.Push(testData(byte(i)))
	}
	var stop, hot uint32
	var n atomic.Int32
	done := make(chan struct{})
	PinnedConsumer(0, r, &stop, &hot, func(*[24]byte) bool {
		return n.Add(1) < 8
	}, done)
	waitDone(t, done)
	if n.Load() != 8 {
		t.Fatalf("handled %d of 8", n.Load())
	}
}

func TestAffinityReportsCPUs(t *testing.T) {
	cpus, err := Affinity()
	if err != nil {
		t.Skipf("affinity unavailable: %v", err)
	}
	if len(cpus) == 0 {
		t.Fatal("no usable CPUs reported")
	}
}
