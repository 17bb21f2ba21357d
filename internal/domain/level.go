package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrEmptyLevelTable = errors.New("level config table is empty")

// LevelConfig is one row of the static level table: an account at Level needs
// MaxPoints points to be promoted to Level+1 and earns RateMultiplier on free
// grants while at Level.
type LevelConfig struct {
	Level          int             `db:"level" json:"level"`
	MinPoints      int64           `db:"min_points" json:"min_points"`
	MaxPoints      int64           `db:"max_points" json:"max_points"`
	RateMultiplier decimal.Decimal `db:"rate_multiplier" json:"rate_multiplier"`
}

// LevelTable is the validated, ordered level configuration. It is loaded once
// at startup and replaced wholesale on an explicit reload; a broken table is a
// startup failure, never silently defaulted.
type LevelTable struct {
	byLevel map[int]LevelConfig
	max     int
}

// NewLevelTable validates the raw rows and builds the lookup table.
// Levels must start at 1, be contiguous and have positive thresholds.
func NewLevelTable(rows []LevelConfig) (*LevelTable, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyLevelTable
	}

	byLevel := make(map[int]LevelConfig, len(rows))
	max := 0
	for _, r := range rows {
		if _, dup := byLevel[r.Level]; dup {
			return nil, fmt.Errorf("duplicate level %d in level config", r.Level)
		}
		if r.MaxPoints <= 0 {
			return nil, fmt.Errorf("level %d has non-positive max points", r.Level)
		}
		if r.RateMultiplier.Sign() <= 0 {
			return nil, fmt.Errorf("level %d has non-positive rate multiplier", r.Level)
		}
		byLevel[r.Level] = r
		if r.Level > max {
			max = r.Level
		}
	}

	for l := 1; l <= max; l++ {
		if _, ok := byLevel[l]; !ok {
			return nil, fmt.Errorf("level config has a gap at level %d", l)
		}
	}

	return &LevelTable{byLevel: byLevel, max: max}, nil
}

// At returns the config for a level, clamping out-of-range levels to the
// nearest configured one so a bad stored level never panics rate math.
func (t *LevelTable) At(level int) LevelConfig {
	if level < 1 {
		level = 1
	}
	if level > t.max {
		level = t.max
	}
	return t.byLevel[level]
}

// All returns the configs ordered by level
func (t *LevelTable) All() []LevelConfig {
	out := make([]LevelConfig, 0, t.max)
	for l := 1; l <= t.max; l++ {
		out = append(out, t.byLevel[l])
	}
	return out
}

// MaxLevel returns the highest configured level
func (t *LevelTable) MaxLevel() int {
	return t.max
}

// Multiplier returns the rate multiplier for a level
func (t *LevelTable) Multiplier(level int) decimal.Decimal {
	return t.At(level).RateMultiplier
}
