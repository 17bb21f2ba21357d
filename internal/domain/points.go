package domain

import "time"

type PointsCategory string

const (
	PointsAdView   PointsCategory = "ad_view"
	PointsCheckin  PointsCategory = "checkin"
	PointsReferral PointsCategory = "referral"
	PointsAdmin    PointsCategory = "admin"
)

func (c PointsCategory) Valid() bool {
	switch c {
	case PointsAdView, PointsCheckin, PointsReferral, PointsAdmin:
		return true
	}
	return false
}

// PointsEvent is an append-only record of one point delta
type PointsEvent struct {
	ID               int64          `db:"id" json:"id"`
	AccountID        int64          `db:"account_id" json:"account_id"`
	Delta            int64          `db:"delta" json:"delta"`
	Category         PointsCategory `db:"category" json:"category"`
	RelatedAccountID *int64         `db:"related_account_id" json:"related_account_id,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}
