package jobs

import (
	"context"
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

// Settlement converts elapsed grant time into durable balance. Each account is
// settled in its own transaction: ledger write, balance update and cursor
// advancement commit together, so a crash never splits them. A failed account
// keeps its old cursor and is picked up again on the next cycle.
type Settlement struct {
	db       *pgxpool.Pool
	accounts *repository.AccountRepository
	grants   *repository.GrantRepository
	ledger   *repository.LedgerRepository
	jobRuns  *repository.JobRunRepository
	composer *rate.Composer
}

func NewSettlement(db *pgxpool.Pool, composer *rate.Composer) *Settlement {
	return &Settlement{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		grants:   repository.NewGrantRepository(db),
		ledger:   repository.NewLedgerRepository(db),
		jobRuns:  repository.NewJobRunRepository(db),
		composer: composer,
	}
}

// Run settles every candidate account up to now. Safe to invoke at any time,
// including manually: re-running without wall-clock advance credits nothing,
// because committed cursors already cover the window.
func (j *Settlement) Run(ctx context.Context) (*repository.JobRun, error) {
	runID := uuid.NewString()
	log := logger.Job("settlement", runID)
	started := time.Now()
	now := started.UTC()

	ids, err := j.accounts.SettlementCandidates(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("settlement started", "candidates", len(ids))

	run := &repository.JobRun{
		RunID:     runID,
		Job:       "settlement",
		WindowEnd: now,
		Credited:  decimal.Zero,
	}

	for _, id := range ids {
		amount, err := j.settleAccount(ctx, id, now)
		if err != nil {
			// isolated: cursor untouched, next run re-covers this window
			log.Error("account settlement failed, skipping", "account_id", id, "error", err)
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

	jobRuns.WithLabelValues("settlement").Inc()
	jobAccountsProcessed.WithLabelValues("settlement").Add(float64(run.Processed))
	jobAccountsSkipped.WithLabelValues("settlement").Add(float64(run.Skipped))
	jobCredited.WithLabelValues("settlement").Add(run.Credited.InexactFloat64())
	jobDuration.WithLabelValues("settlement").Observe(time.Since(started).Seconds())

	log.Info("settlement finished",
		"processed", run.Processed, "skipped", run.Skipped,
		"credited", run.Credited.String(), "duration_ms", run.DurationMS)
	return run, nil
}

// settleAccount realizes one account's accrual over [cursor, now) and
// advances the cursor, all inside a single row-locked transaction.
func (j *Settlement) settleAccount(ctx context.Context, accountID int64, now time.Time) (decimal.Decimal, error) {
	tx, err := j.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	acct, err := j.accounts.LockForUpdate(ctx, tx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if acct.Status != domain.AccountNormal {
		return decimal.Zero, nil
	}

	wStart, wEnd := acct.SettledAt, now
	if !wStart.Before(wEnd) {
		// cursor already at or past now (job overlap); nothing to do
		return decimal.Zero, nil
	}

	grants, err := j.grants.UnsettledByAccountWithTx(ctx, tx, accountID, wStart)
	if err != nil {
		return decimal.Zero, err
	}

	// multiplier snapshot is taken here, inside the lock
	total := decimal.Zero
	for _, g := range grants {
		r := j.composer.GrantRate(acct, g, now)
		total = total.Add(accrual.Amount(r, g.CreatedAt, g.ExpiresAt, wStart, wEnd))
	}

	if total.Sign() > 0 {
		newBalance, err := j.accounts.CreditSettlementWithTx(ctx, tx, accountID, total, wEnd)
		if err != nil {
			return decimal.Zero, err
		}
		entry := &domain.LedgerEntry{
			AccountID:    accountID,
			Kind:         domain.LedgerMiningAccrual,
			Amount:       total,
			BalanceAfter: newBalance,
			Note:         "mining accrual " + wStart.Format(time.RFC3339) + " to " + wEnd.Format(time.RFC3339),
		}
		if err := j.ledger.CreateWithTx(ctx, tx, entry); err != nil {
			return decimal.Zero, err
		}
	} else {
		// zero-accrual window still advances the cursor so the candidate
		// set stays bounded
		if err := j.accounts.AdvanceCursorWithTx(ctx, tx, accountID, wEnd); err != nil {
			return decimal.Zero, err
		}
	}

	// grants past expiry have now been credited for their final interval
	if _, err := j.grants.CompleteExpiredWithTx(ctx, tx, accountID, wEnd); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
