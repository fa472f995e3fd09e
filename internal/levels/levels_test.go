package levels

import (
	"math"
	"testing"
)

func TestXPForLevelKnownValues(t *testing.T) {
	cases := map[int]int64{
		0:   0,
		1:   50,
		5:   1000,
		10:  4000,
		88:  605000,
		89:  620000,
		90:  640000,
		99:  820000,
		100: 845000,
		200: 10370000,
	}
	for level, want := range cases {
		if got := XPForLevel(level); got != want {
			t.Fatalf("XPForLevel(%d): expected %d, got %d", level, want, got)
		}
	}
}

func TestLevelForXPKnownValues(t *testing.T) {
	cases := map[int64]int{
		-10:    0,
		0:      0,
		49:     0,
		50:     1,
		499:    3,
		500:    4,
		605001: 88,
		844900: 99,
		845000: 100,
	}
	for xp, want := range cases {
		if got := LevelForXP(xp); got != want {
			t.Fatalf("LevelForXP(%d): expected %d, got %d", xp, want, got)
		}
	}
}

func TestCurveIsStrictlyIncreasing(t *testing.T) {
	for level := 1; level <= MaxLevel(); level++ {
		if XPForLevel(level) <= XPForLevel(level-1) {
			t.Fatalf("level %d does not increase: %d <= %d", level, XPForLevel(level), XPForLevel(level-1))
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for level := 0; level <= 200; level++ {
		xp := XPForLevel(level)
		if got := LevelForXP(xp); got != level {
			t.Fatalf("LevelForXP(XPForLevel(%d)) = %d", level, got)
		}
		if level > 0 {
			if got := LevelForXP(xp - 1); got != level-1 {
				t.Fatalf("LevelForXP(XPForLevel(%d)-1) = %d", level, got)
			}
		}
	}
}

func TestIncrementBlocks(t *testing.T) {
	for level := 90; level < 100; level++ {
		if got := increment(level); got != 20000 {
			t.Fatalf("increment(%d): expected 20000, got %d", level, got)
		}
	}
	if got := increment(89); got != 15000 {
		t.Fatalf("increment(89): expected 15000, got %d", got)
	}
	if got := increment(100); got != 25000 {
		t.Fatalf("increment(100): expected 25000, got %d", got)
	}
	// block 9 wraps the leading digit and adds a zero.
	if got := increment(150); got != 50000 {
		t.Fatalf("increment(150): expected 50000, got %d", got)
	}
}

func TestSaturation(t *testing.T) {
	top := MaxLevel()
	if XPForLevel(top) != math.MaxInt64 {
		t.Fatalf("expected the last level to saturate")
	}
	if XPForLevel(top+1) != math.MaxInt64 || XPForLevel(math.MaxInt) != math.MaxInt64 {
		t.Fatalf("expected levels past the curve to saturate")
	}
	if LevelForXP(math.MaxInt64) != top {
		t.Fatalf("expected LevelForXP(max) = %d, got %d", top, LevelForXP(math.MaxInt64))
	}
	if XPForLevel(-3) != 0 {
		t.Fatalf("expected negative levels to map to 0")
	}
}

func TestProgress(t *testing.T) {
	p := ProgressFor(75)
	if p.Level != 1 || p.Floor != 50 || p.Next != 100 {
		t.Fatalf("unexpected progress %+v", p)
	}
	if p.Ratio != 0.5 {
		t.Fatalf("expected ratio 0.5, got %v", p.Ratio)
	}
	if bar := p.Bar(4); bar != "██░░" {
		t.Fatalf("unexpected bar %q", bar)
	}
}
