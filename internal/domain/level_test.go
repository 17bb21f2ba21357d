package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func lc(level int, maxPoints int64, mult string) LevelConfig {
	m, _ := decimal.NewFromString(mult)
	return LevelConfig{Level: level, MinPoints: 0, MaxPoints: maxPoints, RateMultiplier: m}
}

func TestNewLevelTable(t *testing.T) {
	tbl, err := NewLevelTable([]LevelConfig{lc(1, 20, "1.0"), lc(2, 30, "1.1"), lc(3, 50, "1.25")})
	if err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}
	if tbl.MaxLevel() != 3 {
		t.Fatalf("max level = %d; want 3", tbl.MaxLevel())
	}
	if got := tbl.At(2).MaxPoints; got != 30 {
		t.Fatalf("At(2).MaxPoints = %d; want 30", got)
	}
}

func TestNewLevelTable_Empty(t *testing.T) {
	_, err := NewLevelTable(nil)
	if !errors.Is(err, ErrEmptyLevelTable) {
		t.Fatalf("expected ErrEmptyLevelTable, got %v", err)
	}
}

func TestNewLevelTable_Gap(t *testing.T) {
	_, err := NewLevelTable([]LevelConfig{lc(1, 20, "1.0"), lc(3, 50, "1.2")})
	if err == nil {
		t.Fatal("table with a gap accepted")
	}
}

func TestNewLevelTable_BadRows(t *testing.T) {
	cases := []struct {
		name string
		rows []LevelConfig
	}{
		{"duplicate level", []LevelConfig{lc(1, 20, "1.0"), lc(1, 30, "1.1")}},
		{"zero max points", []LevelConfig{lc(1, 0, "1.0")}},
		{"zero multiplier", []LevelConfig{lc(1, 20, "0")}},
	}
	for _, tc := range cases {
		if _, err := NewLevelTable(tc.rows); err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
	}
}

func TestLevelTable_AtClamps(t *testing.T) {
	tbl, _ := NewLevelTable([]LevelConfig{lc(1, 20, "1.0"), lc(2, 30, "1.1")})
	if got := tbl.At(0).Level; got != 1 {
		t.Fatalf("At(0).Level = %d; want 1", got)
	}
	if got := tbl.At(99).Level; got != 2 {
		t.Fatalf("At(99).Level = %d; want 2", got)
	}
}
