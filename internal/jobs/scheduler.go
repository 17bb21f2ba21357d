package jobs

import (
	"context"
	"errors"

	"coinmine/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the batch jobs on their fixed clock grid. The rebate spec
// should trail the settlement spec by a few minutes so rebates always read
// post-settlement state.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
}

func NewScheduler(runner *Runner, settlementSpec, rebateSpec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		runner: runner,
	}

	if _, err := s.cron.AddFunc(settlementSpec, func() {
		if _, err := runner.RunSettlement(context.Background()); err != nil {
			if errors.Is(err, ErrJobLocked) {
				logger.Info("settlement skipped, lock held elsewhere")
				return
			}
			logger.Error("scheduled settlement failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := s.cron.AddFunc(rebateSpec, func() {
		if _, err := runner.RunReferralRebate(context.Background()); err != nil {
			if errors.Is(err, ErrJobLocked) {
				logger.Info("rebate skipped, lock held elsewhere")
				return
			}
			logger.Error("scheduled rebate failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins scheduling in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("job scheduler started")
}

// Stop stops scheduling and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("job scheduler stopped")
}
