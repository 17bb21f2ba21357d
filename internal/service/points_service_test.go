package service

import (
	"testing"

	"coinmine/internal/domain"

	"github.com/shopspring/decimal"
)

func levels(t *testing.T, maxPoints ...int64) *domain.LevelTable {
	t.Helper()
	rows := make([]domain.LevelConfig, len(maxPoints))
	for i, mp := range maxPoints {
		rows[i] = domain.LevelConfig{
			Level:          i + 1,
			MaxPoints:      mp,
			RateMultiplier: decimal.NewFromInt(1),
		}
	}
	tbl, err := domain.NewLevelTable(rows)
	if err != nil {
		t.Fatalf("level table: %v", err)
	}
	return tbl
}

func TestCascade(t *testing.T) {
	cases := []struct {
		name       string
		thresholds []int64
		level      int
		points     int64
		wantLevel  int
		wantPoints int64
	}{
		{"no level up", []int64{20, 30, 50}, 1, 15, 1, 15},
		{"exact threshold", []int64{20, 30, 50}, 1, 20, 2, 0},
		{"single level up with remainder", []int64{20, 30, 50}, 1, 27, 2, 7},
		{"double level up in one update", []int64{20, 30, 50}, 1, 75, 3, 25},
		{"cascade through all levels", []int64{10, 10, 10, 10}, 1, 35, 4, 5},
		{"points pile up at max level", []int64{20, 30, 50}, 3, 500, 3, 500},
		{"starts mid-table", []int64{20, 30, 50}, 2, 42, 3, 12},
	}

	for _, tc := range cases {
		gotLevel, gotPoints := cascade(levels(t, tc.thresholds...), tc.level, tc.points)
		if gotLevel != tc.wantLevel || gotPoints != tc.wantPoints {
			t.Errorf("%s: got (L%d, %d), want (L%d, %d)",
				tc.name, gotLevel, gotPoints, tc.wantLevel, tc.wantPoints)
		}
	}
}

func TestCascade_SingleLevelTable(t *testing.T) {
	// with one configured level there is nowhere to go
	gotLevel, gotPoints := cascade(levels(t, 100), 1, 100000)
	if gotLevel != 1 || gotPoints != 100000 {
		t.Fatalf("got (L%d, %d), want (L1, 100000)", gotLevel, gotPoints)
	}
}
