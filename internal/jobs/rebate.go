package jobs

import (
	"context"
	"strconv"
	"time"

	"coinmine/internal/accrual"
	"coinmine/internal/domain"
	"coinmine/internal/logger"
	"coinmine/internal/rate"
	"coinmine/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Rebate pays referrers a percentage of their referees' eligible accrual.
// Only configured grant types feed the rebate base (ad rewards by default;
// paid tiers are deliberately excluded). Each referrer keeps an own cursor so
// a window is never paid twice, mirroring the settlement cursor discipline.
type Rebate struct {
	db        *pgxpool.Pool
	accounts  *repository.AccountRepository
	grants    *repository.GrantRepository
	ledger    *repository.LedgerRepository
	referrals *repository.ReferralRepository
	jobRuns   *repository.JobRunRepository
	composer  *rate.Composer

	rebateRate    decimal.Decimal
	eligibleTypes []string
}

func NewRebate(db *pgxpool.Pool, composer *rate.Composer, rebateRate decimal.Decimal, eligible map[domain.GrantType]bool) *Rebate {
	types := make([]string, 0, len(eligible))
	for t := range eligible {
		types = append(types, string(t))
	}
	return &Rebate{
		db:            db,
		accounts:      repository.NewAccountRepository(db),
		grants:        repository.NewGrantRepository(db),
		ledger:        repository.NewLedgerRepository(db),
		referrals:     repository.NewReferralRepository(db),
		jobRuns:       repository.NewJobRunRepository(db),
		composer:      composer,
		rebateRate:    rebateRate,
		eligibleTypes: types,
	}
}

// Run pays every referrer their rebate for the window since their last rebate
// cursor. Scheduled shortly after settlement so it reads settled state; safe
// to invoke manually.
func (j *Rebate) Run(ctx context.Context) (*repository.JobRun, error) {
	runID := uuid.NewString()
	log := logger.Job("referral_rebate", runID)
	started := time.Now()
	now := started.UTC()

	referrers, err := j.referrals.Referrers(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("rebate started", "referrers", len(referrers))

	run := &repository.JobRun{
		RunID:     runID,
		Job:       "referral_rebate",
		WindowEnd: now,
		Credited:  decimal.Zero,
	}

	for _, id := range referrers {
		amount, err := j.rebateReferrer(ctx, id, now, runID)
		if err != nil {
			log.Error("referrer rebate failed, skipping", "referrer_id", id, "error", err)
			run.Skipped++
			continue
		}
		run.Processed++
		run.Credited = run.Credited.Add(amount)
	}

	run.DurationMS = time.Since(started).Milliseconds()
	if err := j.jobRuns.Record(ctx, run); err != nil {
		log.Error("failed to record job run", "error", err)
	}

	jobRuns.WithLabelValues("referral_rebate").Inc()
	jobAccountsProcessed.WithLabelValues("referral_rebate").Add(float64(run.Processed))
	jobAccountsSkipped.WithLabelValues("referral_rebate").Add(float64(run.Skipped))
	jobCredited.WithLabelValues("referral_rebate").Add(run.Credited.InexactFloat64())
	jobDuration.WithLabelValues("referral_rebate").Observe(time.Since(started).Seconds())

	log.Info("rebate finished",
		"processed", run.Processed, "skipped", run.Skipped,
		"credited", run.Credited.String(), "duration_ms", run.DurationMS)
	return run, nil
}

// rebateReferrer computes and credits one referrer's rebate for
// [rebate cursor, now), with one audit row per contributing referee.
func (j *Rebate) rebateReferrer(ctx context.Context, referrerID int64, now time.Time, runID string) (decimal.Decimal, error) {
	referees, err := j.referrals.RefereesOf(ctx, referrerID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(referees) == 0 {
		return decimal.Zero, nil
	}

	tx, err := j.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	referrer, err := j.accounts.LockForUpdate(ctx, tx, referrerID)
	if err != nil {
		return decimal.Zero, err
	}
	if referrer.Status != domain.AccountNormal {
		return decimal.Zero, nil
	}

	wStart, wEnd := referrer.RebateSettledAt, now
	if !wStart.Before(wEnd) {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	contributing := 0
	for _, refereeID := range referees {
		accrued, err := j.refereeAccrual(ctx, tx, refereeID, wStart, wEnd, now)
		if err != nil {
			return decimal.Zero, err
		}
		if accrued.Sign() <= 0 {
			continue
		}

		contributed := accrued.Mul(j.rebateRate)
		audit := &domain.RebateAudit{
			RunID:       runID,
			ReferrerID:  referrerID,
			RefereeID:   refereeID,
			Accrued:     accrued,
			Contributed: contributed,
			WindowStart: wStart,
			WindowEnd:   wEnd,
		}
		if err := j.referrals.CreateAuditWithTx(ctx, tx, audit); err != nil {
			return decimal.Zero, err
		}

		total = total.Add(contributed)
		contributing++
	}

	if total.Sign() > 0 {
		newBalance, err := j.accounts.CreditRebateWithTx(ctx, tx, referrerID, total, wEnd)
		if err != nil {
			return decimal.Zero, err
		}
		entry := &domain.LedgerEntry{
			AccountID:    referrerID,
			Kind:         domain.LedgerReferralRebate,
			Amount:       total,
			BalanceAfter: newBalance,
			Note:         "referral rebate from " + strconv.Itoa(contributing) + " referees",
		}
		if err := j.ledger.CreateWithTx(ctx, tx, entry); err != nil {
			return decimal.Zero, err
		}
	} else {
		if err := j.accounts.AdvanceRebateCursorWithTx(ctx, tx, referrerID, wEnd); err != nil {
			return decimal.Zero, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// refereeAccrual prices one referee's eligible-grant accrual inside a window,
// using the referee's own multiplier snapshot, not the referrer's.
func (j *Rebate) refereeAccrual(ctx context.Context, tx pgx.Tx, refereeID int64, wStart, wEnd, now time.Time) (decimal.Decimal, error) {
	referee, err := j.accounts.GetByID(ctx, refereeID)
	if err != nil {
		return decimal.Zero, err
	}

	grants, err := j.grants.ByAccountTypesWindowWithTx(ctx, tx, refereeID, j.eligibleTypes, wStart, wEnd)
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, g := range grants {
		r := j.composer.GrantRate(referee, g, now)
		sum = sum.Add(accrual.Amount(r, g.CreatedAt, g.ExpiresAt, wStart, wEnd))
	}
	return sum, nil
}
