package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKind is the closed set of balance-changing operations. Extend
// deliberately; reconciliation assumes this list is exhaustive.
type LedgerKind string

const (
	LedgerMiningAccrual  LedgerKind = "mining_accrual"
	LedgerReferralRebate LedgerKind = "referral_rebate"
	LedgerManualAdjust   LedgerKind = "manual_adjust"
	LedgerDebit          LedgerKind = "debit"
)

func (k LedgerKind) Valid() bool {
	switch k {
	case LedgerMiningAccrual, LedgerReferralRebate, LedgerManualAdjust, LedgerDebit:
		return true
	}
	return false
}

// LedgerEntry is append-only. Entries are never mutated or deleted; they are
// the audit trail and the proof that a settlement window was credited.
type LedgerEntry struct {
	ID           int64           `db:"id" json:"id"`
	AccountID    int64           `db:"account_id" json:"account_id"`
	Kind         LedgerKind      `db:"kind" json:"kind"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	Note         string          `db:"note" json:"note,omitempty"`
	// RelatedAccountID points at the referee whose activity produced a rebate
	RelatedAccountID *int64    `db:"related_account_id" json:"related_account_id,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
