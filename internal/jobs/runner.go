package jobs

import (
	"context"
	"errors"
	"time"

	"coinmine/internal/repository"
)

// ErrJobLocked means another instance (or an overlapping trigger) holds the job
var ErrJobLocked = errors.New("job is already running elsewhere")

// Runner is the single entry point for executing batch jobs, shared by the
// cron scheduler and the manual admin triggers so both paths go through the
// same distributed lock.
type Runner struct {
	settlement *Settlement
	rebate     *Rebate
	locker     *Locker
	lockTTL    time.Duration
}

func NewRunner(settlement *Settlement, rebate *Rebate, locker *Locker, lockTTL time.Duration) *Runner {
	return &Runner{
		settlement: settlement,
		rebate:     rebate,
		locker:     locker,
		lockTTL:    lockTTL,
	}
}

// RunSettlement executes one settlement cycle under the job lock
func (r *Runner) RunSettlement(ctx context.Context) (*repository.JobRun, error) {
	if !r.locker.Acquire(ctx, "settlement", r.lockTTL) {
		return nil, ErrJobLocked
	}
	defer r.locker.Release(ctx, "settlement")
	return r.settlement.Run(ctx)
}

// RunReferralRebate executes one rebate cycle under the job lock
func (r *Runner) RunReferralRebate(ctx context.Context) (*repository.JobRun, error) {
	if !r.locker.Acquire(ctx, "referral_rebate", r.lockTTL) {
		return nil, ErrJobLocked
	}
	defer r.locker.Release(ctx, "referral_rebate")
	return r.rebate.Run(ctx)
}
