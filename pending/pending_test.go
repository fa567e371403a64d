package pending

import (
	"testing"

	"rlpf/state"
)

func entry(i int) Entry {
	return Entry{State: state.New(uint64(i), nil), Action: uint8(i % 6)}
}

func TestRetirementCadence(t *testing.T) {
	for _, k := range []int{0, 1, 3, 8, 128} {
		q := New(k)
		retiredAt := map[int]int{} // entry index -> push index that retired it
		for push := 0; push < 4*k+10; push++ {
			q.PushFront(entry(push))
			popped := 0
			for q.Overfull() {
				e, ok := q.PopBack()
				if !ok {
					t.Fatalf("k=%d: overfull queue reported empty", k)
				}
				retiredAt[int(e.State.PC)] = push
				popped++
			}
			if popped > 1 {
				t.Fatalf("k=%d push %d: retired %d entries", k, push, popped)
			}
			if q.Len() > k {
				t.Fatalf("k=%d: Len %d after retire", k, q.Len())
			}
		}
		for idx, at := range retiredAt {
			if at-idx != k {
				t.Fatalf("k=%d: entry %d retired at push %d", k, idx, at)
			}
		}
		if len(retiredAt) != 3*k+10 {
			t.Fatalf("k=%d: %d retirements", k, len(retiredAt))
		}
	}
}

func TestNoRetirementBeforeKPlusOne(t *testing.T) {
	q := New(128)
	for i := 0; i < 128; i++ {
		q.PushFront(entry(i))
		if q.Overfull() {
			t.Fatalf("overfull after %d pushes", i+1)
		}
	}
	q.PushFront(entry(128))
	if !q.Overfull() || q.Len() != 129 {
		t.Fatalf("129th push: Overfull=%v Len=%d", q.Overfull(), q.Len())
	}
	e, _ := q.PopBack()
	if e.State.PC != 0 {
		t.Fatalf("retired entry %d, want 0", e.State.PC)
	}
}

func TestFrontAndBack(t *testing.T) {
	q := New(4)
	if _, ok := q.Front(); ok {
		t.Fatal("empty Front ok")
	}
	if _, ok := q.Back(); ok {
		t.Fatal("empty Back ok")
	}
	for i := 0; i < 3; i++ {
		q.PushFront(entry(i))
	}
	f, _ := q.Front()
	b, _ := q.Back()
	if f.State.PC != 2 || b.State.PC != 0 {
		t.Fatalf("front=%d back=%d", f.State.PC, b.State.PC)
	}
	q.PopBack()
	b, _ = q.Back()
	if b.State.PC != 1 {
		t.Fatalf("new back=%d, want 1", b.State.PC)
	}
}

func TestEmptyAfterPopAtZeroCapacity(t *testing.T) {
	q := New(0)
	q.PushFront(entry(7))
	if !q.Overfull() {
		t.Fatal("capacity 0 should retire immediately")
	}
	if e, ok := q.PopBack(); !ok || e.State.PC != 7 {
		t.Fatal("PopBack lost the entry")
	}
	if _, ok := q.Front(); ok {
		t.Fatal("front present after popping the only entry")
	}
	if _, ok := q.PopBack(); ok {
		t.Fatal("PopBack on empty reported ok")
	}
}

func TestPushWithoutRetirePanics(t *testing.T) {
	q := New(1)
	q.PushFront(entry(0))
	q.PushFront(entry(1)) // overfull, retire skipped
	defer func() {
		if recover() == nil {
			t.Fatal("push past the momentary peak did not panic")
		}
	}()
	q.PushFront(entry(2))
}

func TestNegativeCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(-1) did not panic")
		}
	}()
	New(-1)
}

func TestReset(t *testing.T) {
	q := New(2)
	q.PushFront(entry(1))
	q.Reset()
	if q.Len() != 0 {
		t.Fatal("Reset kept entries")
	}
	if _, ok := q.Front(); ok {
		t.Fatal("Front after Reset")
	}
}
