package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type GrantType string

const (
	GrantAdReward      GrantType = "ad_reward"
	GrantDailyCheckin  GrantType = "daily_checkin"
	GrantReferralBonus GrantType = "referral_bonus"
	GrantPaidTier1     GrantType = "paid_tier_1"
	GrantPaidTier2     GrantType = "paid_tier_2"
	GrantPaidTier3     GrantType = "paid_tier_3"
)

// IsPaid reports whether the grant's rate was pre-multiplied and frozen at
// purchase time. Paid grants never pick up later level/country changes.
func (t GrantType) IsPaid() bool {
	switch t {
	case GrantPaidTier1, GrantPaidTier2, GrantPaidTier3:
		return true
	}
	return false
}

func (t GrantType) Valid() bool {
	switch t {
	case GrantAdReward, GrantDailyCheckin, GrantReferralBonus,
		GrantPaidTier1, GrantPaidTier2, GrantPaidTier3:
		return true
	}
	return false
}

type GrantStatus string

const (
	GrantMining    GrantStatus = "mining"
	GrantCompleted GrantStatus = "completed" // terminal
	GrantError     GrantStatus = "error"
)

// Grant is a time-bounded right to accrue coin at BaseRate coin/second.
// The [CreatedAt, ExpiresAt) interval is half-open.
type Grant struct {
	ID        int64           `db:"id" json:"id"`
	AccountID int64           `db:"account_id" json:"account_id"`
	Type      GrantType       `db:"type" json:"type"`
	BaseRate  decimal.Decimal `db:"base_rate" json:"base_rate"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	ExpiresAt time.Time       `db:"expires_at" json:"expires_at"`
	// BonusEligible marks grant types the temporary bonus multiplier applies to
	BonusEligible bool        `db:"bonus_eligible" json:"bonus_eligible"`
	Status        GrantStatus `db:"status" json:"status"`
}

// Active reports whether the grant is accruing at the given instant
func (g *Grant) Active(now time.Time) bool {
	return g.Status == GrantMining && now.Before(g.ExpiresAt)
}
