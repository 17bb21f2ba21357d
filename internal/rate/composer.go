package rate

import (
	"sync/atomic"
	"time"

	"coinmine/internal/domain"
	"coinmine/internal/logger"

	"github.com/shopspring/decimal"
)

// Composer computes effective per-second accrual rates. It is a pure reader:
// level and country multipliers are taken from the account state it is handed,
// so free grants pick up multiplier changes immediately while paid grants keep
// the frozen rate they were bought at.
type Composer struct {
	levels    atomic.Pointer[domain.LevelTable]
	bonusMult decimal.Decimal
}

func NewComposer(levels *domain.LevelTable, bonusMult decimal.Decimal) *Composer {
	c := &Composer{bonusMult: bonusMult}
	c.levels.Store(levels)
	return c
}

// SetLevels swaps in a reloaded level table. The old table stays valid for
// readers that already hold it.
func (c *Composer) SetLevels(t *domain.LevelTable) {
	c.levels.Store(t)
}

// Levels returns the current level table
func (c *Composer) Levels() *domain.LevelTable {
	return c.levels.Load()
}

// GrantRate returns one grant's effective coin/second rate at the given
// instant. Malformed grants contribute zero instead of failing the account.
func (c *Composer) GrantRate(acct *domain.Account, g *domain.Grant, now time.Time) decimal.Decimal {
	if g.BaseRate.Sign() < 0 {
		logger.Warn("grant has negative base rate, skipping",
			"grant_id", g.ID, "account_id", g.AccountID, "base_rate", g.BaseRate.String())
		return decimal.Zero
	}
	if !g.ExpiresAt.After(g.CreatedAt) {
		logger.Warn("grant expires before it starts, skipping",
			"grant_id", g.ID, "account_id", g.AccountID)
		return decimal.Zero
	}

	if g.Type.IsPaid() {
		// purchased rate is pre-multiplied and frozen
		return g.BaseRate
	}

	r := g.BaseRate.
		Mul(c.levels.Load().Multiplier(acct.Level)).
		Mul(acct.CountryMultiplier)
	if g.BonusEligible && acct.BonusActive(now) {
		r = r.Mul(c.bonusMult)
	}
	return r
}

// PerSecond composes the account's total current rate over its grants,
// skipping anything not actively mining at the given instant.
func (c *Composer) PerSecond(acct *domain.Account, grants []*domain.Grant, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, g := range grants {
		if !g.Active(now) {
			continue
		}
		total = total.Add(c.GrantRate(acct, g, now))
	}
	return total
}
