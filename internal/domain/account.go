package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountNormal   AccountStatus = "normal"
	AccountDisabled AccountStatus = "disabled"
	AccountDeleted  AccountStatus = "deleted" // soft delete, rows are never removed
)

type Account struct {
	ID       int64  `db:"id" json:"id"`
	TgID     int64  `db:"tg_id" json:"tg_id"`
	Username string `db:"username" json:"username"`

	// Balance is the settled balance; everything past SettledAt is an estimate.
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	LifetimeEarned decimal.Decimal `db:"lifetime_earned" json:"lifetime_earned"`

	// SettledAt is the settlement cursor. It only moves forward.
	SettledAt       time.Time `db:"settled_at" json:"settled_at"`
	RebateSettledAt time.Time `db:"rebate_settled_at" json:"rebate_settled_at"`

	Level       int   `db:"level" json:"level"`
	LevelPoints int64 `db:"level_points" json:"level_points"`

	CountryMultiplier decimal.Decimal `db:"country_multiplier" json:"country_multiplier"`
	// BonusUntil gates the temporary bonus multiplier on bonus-eligible grants.
	BonusUntil *time.Time `db:"bonus_until" json:"bonus_until,omitempty"`

	Status    AccountStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// BonusActive reports whether the daily bonus window covers now
func (a *Account) BonusActive(now time.Time) bool {
	return a.BonusUntil != nil && now.Before(*a.BonusUntil)
}
