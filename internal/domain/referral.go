package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral binds a referee to the referrer whose code they used.
// A referee has at most one referrer; the edge is immutable once created.
type Referral struct {
	ID         int64     `db:"id" json:"id"`
	ReferrerID int64     `db:"referrer_id" json:"referrer_id"`
	RefereeID  int64     `db:"referee_id" json:"referee_id"`
	Code       string    `db:"code" json:"code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RebateAudit records one referee's contribution to one rebate payout,
// kept for transparency and dispute resolution.
type RebateAudit struct {
	ID          int64           `db:"id" json:"id"`
	RunID       string          `db:"run_id" json:"run_id"`
	ReferrerID  int64           `db:"referrer_id" json:"referrer_id"`
	RefereeID   int64           `db:"referee_id" json:"referee_id"`
	Accrued     decimal.Decimal `db:"accrued" json:"accrued"`
	Contributed decimal.Decimal `db:"contributed" json:"contributed"`
	WindowStart time.Time       `db:"window_start" json:"window_start"`
	WindowEnd   time.Time       `db:"window_end" json:"window_end"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
