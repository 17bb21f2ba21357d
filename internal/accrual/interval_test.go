package accrual

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func TestOverlapSeconds(t *testing.T) {
	cases := []struct {
		name                       string
		gStart, gEnd, wStart, wEnd time.Time
		want                       int64
	}{
		{"grant inside window", at(100), at(200), at(0), at(1000), 100},
		{"window inside grant", at(0), at(1000), at(100), at(200), 100},
		{"overlap at window start", at(-50), at(100), at(0), at(1000), 100},
		{"overlap at window end", at(900), at(2000), at(0), at(1000), 100},
		{"fully before window", at(-200), at(-100), at(0), at(1000), 0},
		{"fully after window", at(2000), at(3000), at(0), at(1000), 0},
		{"exactly abutting before", at(-100), at(0), at(0), at(1000), 0},
		{"exactly abutting after", at(1000), at(1100), at(0), at(1000), 0},
		{"zero-length grant", at(100), at(100), at(0), at(1000), 0},
		{"zero-length window", at(0), at(1000), at(100), at(100), 0},
		{"identical intervals", at(0), at(1000), at(0), at(1000), 1000},
	}

	for _, tc := range cases {
		if got := OverlapSeconds(tc.gStart, tc.gEnd, tc.wStart, tc.wEnd); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestOverlapSeconds_TruncatesFractions(t *testing.T) {
	// 99.7s of real overlap must price as 99 whole seconds
	gEnd := at(100).Add(-300 * time.Millisecond)
	if got := OverlapSeconds(at(0), gEnd, at(0), at(1000)); got != 99 {
		t.Fatalf("got %d, want 99", got)
	}
}

func TestAmount(t *testing.T) {
	rate := decimal.RequireFromString("0.0000000000001")

	got := Amount(rate, at(0), at(1500), at(0), at(1000))
	want := rate.Mul(decimal.NewFromInt(1000))
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}

	if !Amount(rate, at(0), at(100), at(200), at(300)).IsZero() {
		t.Fatal("disjoint intervals must price to zero")
	}
	if !Amount(decimal.Zero, at(0), at(100), at(0), at(100)).IsZero() {
		t.Fatal("zero rate must price to zero")
	}
	if !Amount(decimal.NewFromInt(-1), at(0), at(100), at(0), at(100)).IsZero() {
		t.Fatal("negative rate must price to zero")
	}
}

// Splitting one window into consecutive sub-windows at whole-second
// boundaries must credit exactly what the single big window credits.
func TestAmount_WindowSplitEquivalence(t *testing.T) {
	rate := decimal.RequireFromString("0.000000000000123456")
	gStart, gEnd := at(37), at(7211)

	whole := Amount(rate, gStart, gEnd, at(0), at(7200))

	split := decimal.Zero
	bounds := []int{0, 1800, 3600, 5400, 7200}
	for i := 0; i+1 < len(bounds); i++ {
		split = split.Add(Amount(rate, gStart, gEnd, at(bounds[i]), at(bounds[i+1])))
	}

	if !whole.Equal(split) {
		t.Fatalf("split sum %s != whole window %s", split, whole)
	}
}

func TestAmount_Deterministic(t *testing.T) {
	rate := decimal.RequireFromString("0.000000000000000001")
	a := Amount(rate, at(10), at(500), at(0), at(400))
	b := Amount(rate, at(10), at(500), at(0), at(400))
	if !a.Equal(b) || a.String() != b.String() {
		t.Fatalf("identical inputs priced differently: %s vs %s", a, b)
	}
}
