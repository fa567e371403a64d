package action

import "testing"

func TestTranslate(t *testing.T) {
	if got, want := Translate(100, 3), uint64(100+1)<<6; got != want {
		t.Fatalf("Translate(100, 3) = %d, want %d", got, want)
	}

	for a, off := range Offsets {
		got := Translate(1000, a)
		want := uint64(1000+off) << 6
		if got != want {
			t.Fatalf("Translate(1000, %d) = %#x, want %#x", a, got, want)
		}
	}
}

func TestTranslateDeterministic(t *testing.T) {
	for a := 0; a < Count; a++ {
		if Translate(0x1234, a) != Translate(0x1234, a) {
			t.Fatalf("Translate not deterministic for action %d", a)
		}
	}
}

func TestOffsetsShape(t *testing.T) {
	want := [Count]int64{-6, -3, -1, 1, 3, 6}
	if Offsets != want {
		t.Fatalf("Offsets = %v, want %v", Offsets, want)
	}
	for a, off := range Offsets {
		if off == 0 {
			t.Fatalf("action %d has zero offset", a)
		}
	}
}

func TestSamePage(t *testing.T) {
	tests := []struct {
		a, b uint64
		want bool
	}{
		{0x1000, 0x1FFF, true},
		{0x1000, 0x2000, false},
		{0x1FFF, 0x2000, false},
		{0x0, 0xFFF, true},
		{0xFFFF_F000, 0xFFFF_FFFF, true},
	}
	for _, tt := range tests {
		if got := SamePage(tt.a, tt.b); got != tt.want {
			t.Errorf("SamePage(%#x, %#x) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := SamePage(tt.b, tt.a); got != tt.want {
			t.Errorf("SamePage not symmetric for %#x, %#x", tt.a, tt.b)
		}
	}
}

func TestSamePageMatchesShift(t *testing.T) {
	for a := uint64(0); a < 1<<14; a += 97 {
		for b := uint64(0); b < 1<<14; b += 131 {
			if SamePage(a, b) != (a>>12 == b>>12) {
				t.Fatalf("SamePage(%#x, %#x) disagrees with page shift", a, b)
			}
		}
	}
}

func TestTranslateAcrossPageRejected(t *testing.T) {
	// Last line of page 1 (0x1FC0) plus one line lands on page 2.
	line := Line(0x1FC0)
	cand := Translate(line, 3)
	if SamePage(cand, 0x1FC0) {
		t.Fatalf("candidate %#x should leave the page of 0x1FC0", cand)
	}
	// Going back one line stays inside.
	if !SamePage(Translate(line, 2), 0x1FC0) {
		t.Fatal("candidate one line back should stay in page")
	}
}

func TestLine(t *testing.T) {
	if Line(0x1040) != 0x41 || Line(0x103F) != 0x40 {
		t.Fatal("Line uses wrong block shift")
	}
}
