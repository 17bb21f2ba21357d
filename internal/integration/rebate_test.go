package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinmine/internal/domain"
	"coinmine/internal/jobs"
	"coinmine/internal/repository"

	"github.com/shopspring/decimal"
)

func bindReferral(t *testing.T, repo *repository.ReferralRepository, referrerID, refereeID int64) {
	t.Helper()
	ctx := context.Background()
	code, err := repo.GetOrCreateCode(ctx, referrerID)
	if err != nil {
		t.Fatalf("get code: %v", err)
	}
	if err := repo.Bind(ctx, referrerID, refereeID, code); err != nil {
		t.Fatalf("bind: %v", err)
	}
}

func TestRebatePaysReferrer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	referrerID := createBackdatedAccount(t, db, time.Hour)
	refereeA := createBackdatedAccount(t, db, time.Hour)
	refereeB := createBackdatedAccount(t, db, time.Hour)

	referrals := repository.NewReferralRepository(db)
	bindReferral(t, referrals, referrerID, refereeA)
	bindReferral(t, referrals, referrerID, refereeB)

	// each referee accrues 0.001/s on an eligible grant across the whole window
	insertBackdatedGrant(t, db, refereeA, "ad_reward", "0.001", time.Hour, 2*time.Hour)
	insertBackdatedGrant(t, db, refereeB, "ad_reward", "0.001", time.Hour, 2*time.Hour)
	// paid accrual never feeds rebates
	insertBackdatedGrant(t, db, refereeB, "paid_tier_1", "0.5", time.Hour, 2*time.Hour)

	rebate := jobs.NewRebate(db, newComposer(t, db), decimal.RequireFromString("0.20"),
		map[domain.GrantType]bool{domain.GrantAdReward: true})
	if _, err := rebate.Run(ctx); err != nil {
		t.Fatalf("rebate run: %v", err)
	}

	// two referees at 0.001/s over ~1h, 20% of it: about 1.44
	balance := accountBalance(t, db, referrerID)
	min := decimal.RequireFromString("1.44")
	max := decimal.RequireFromString("1.45")
	if balance.LessThan(min) || balance.GreaterThan(max) {
		t.Fatalf("expected rebate near 1.44, got %s", balance)
	}

	// one aggregate ledger entry, one audit row per contributing referee
	n, err := repository.NewLedgerRepository(db).CountByAccountKind(ctx, referrerID, domain.LedgerReferralRebate)
	if err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 rebate ledger entry, got %d", n)
	}

	audits, err := referrals.AuditCount(ctx, referrerID)
	if err != nil {
		t.Fatalf("audit count: %v", err)
	}
	if audits != 2 {
		t.Fatalf("expected 2 audit rows, got %d", audits)
	}
}

func TestRebateIdempotentAcrossRuns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	referrerID := createBackdatedAccount(t, db, time.Hour)
	refereeID := createBackdatedAccount(t, db, time.Hour)

	referrals := repository.NewReferralRepository(db)
	bindReferral(t, referrals, referrerID, refereeID)
	insertBackdatedGrant(t, db, refereeID, "ad_reward", "0.001", time.Hour, 2*time.Hour)

	rebate := jobs.NewRebate(db, newComposer(t, db), decimal.RequireFromString("0.20"),
		map[domain.GrantType]bool{domain.GrantAdReward: true})

	if _, err := rebate.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := accountBalance(t, db, referrerID)

	if _, err := rebate.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := accountBalance(t, db, referrerID)

	delta := second.Sub(first)
	limit := decimal.RequireFromString("0.002") // 10s of slack at 20% of 0.001/s
	if delta.GreaterThan(limit) {
		t.Fatalf("second run re-paid the window: delta %s", delta)
	}
}

func TestReferralBindIsUnique(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	referrerA := createBackdatedAccount(t, db, 0)
	referrerB := createBackdatedAccount(t, db, 0)
	refereeID := createBackdatedAccount(t, db, 0)

	referrals := repository.NewReferralRepository(db)
	bindReferral(t, referrals, referrerA, refereeID)

	codeB, err := referrals.GetOrCreateCode(ctx, referrerB)
	if err != nil {
		t.Fatalf("get code: %v", err)
	}
	err = referrals.Bind(ctx, referrerB, refereeID, codeB)
	if !errors.Is(err, repository.ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
}
