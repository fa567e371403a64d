package qtable

import (
	"testing"

	"rlpf/action"
	"rlpf/state"
)

func key(pc uint64, d ...int64) state.State { return state.New(pc, d) }

func TestEnsureCreatesZeroRow(t *testing.T) {
	tb := New(0)
	s := key(1, 1, 2)
	if !tb.Ensure(s) {
		t.Fatal("first Ensure reported existing row")
	}
	r := tb.Row(s)
	if len(r) != action.Count {
		t.Fatalf("row has %d entries", len(r))
	}
	for a, v := range r {
		if v != 0 {
			t.Fatalf("V(s,%d) = %v before any update", a, v)
		}
	}
}

func TestEnsureIdempotent(t *testing.T) {
	tb := New(0)
	s := key(1)
	tb.Ensure(s)
	tb.Write(s, 2, 0.5)
	before := tb.Row(s)
	if tb.Ensure(s) {
		t.Fatal("second Ensure reported a new row")
	}
	if tb.Row(s) != before || tb.Len() != 1 {
		t.Fatal("second Ensure changed the table")
	}
}

func TestReadWrite(t *testing.T) {
	tb := New(0)
	s1, s2 := key(1, 1), key(1, -1)
	tb.Ensure(s1)
	tb.Ensure(s2)
	tb.Write(s1, 0, 3)
	tb.Write(s2, 5, -2)
	if tb.Read(s1, 0) != 3 || tb.Read(s2, 5) != -2 || tb.Read(s1, 5) != 0 {
		t.Fatal("rows are not independent")
	}
}

func TestRowIsCopy(t *testing.T) {
	tb := New(0)
	s := key(3)
	tb.Ensure(s)
	r := tb.Row(s)
	r[0] = 42
	if tb.Read(s, 0) != 0 {
		t.Fatal("Row aliased table storage")
	}
}

func TestUnensuredAccessPanics(t *testing.T) {
	tb := New(0)
	for name, fn := range map[string]func(){
		"Read":  func() { tb.Read(key(9), 0) },
		"Write": func() { tb.Write(key(9), 0, 1) },
		"Row":   func() { tb.Row(key(9)) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s on unensured state did not panic", name)
				}
			}()
			fn()
		}()
	}
	if tb.Has(key(9)) {
		t.Fatal("failed access created a row")
	}
}

func TestBoundedDropsLeastRecentlyEnsured(t *testing.T) {
	tb := New(2)
	a, b, c := key(1), key(2), key(3)
	tb.Ensure(a)
	tb.Write(a, 0, 1)
	tb.Ensure(b)
	tb.Ensure(a)
	tb.Ensure(c) // drops b
	if tb.Has(b) || !tb.Has(a) || !tb.Has(c) {
		t.Fatal("wrong state dropped")
	}
	if tb.Evictions() != 1 {
		t.Fatalf("Evictions = %d", tb.Evictions())
	}
	if tb.Read(a, 0) != 1 {
		t.Fatal("surviving row lost its value")
	}
	tb.Ensure(b)
	if tb.Read(b, 0) != 0 {
		t.Fatal("re-created row not zeroed")
	}
}

func TestSetAndEach(t *testing.T) {
	tb := New(0)
	tb.Set(key(1), Row{1, 2, 3, 4, 5, 6})
	tb.Set(key(2), Row{6})
	seen := map[uint64]Row{}
	tb.Each(func(s state.State, r Row) bool {
		seen[s.PC] = r
		return true
	})
	if len(seen) != 2 || seen[1][5] != 6 || seen[2][0] != 6 {
		t.Fatalf("Each saw %v", seen)
	}
	tb.Reset()
	if tb.Len() != 0 {
		t.Fatal("Reset kept rows")
	}
}
