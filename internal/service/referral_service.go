package service

import (
	"context"
	"errors"
	"time"

	"coinmine/internal/domain"
	"coinmine/internal/logger"
	"coinmine/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrSelfReferral = errors.New("cannot refer yourself")

// ReferralService binds referees to referrers and hands the referrer their
// one-time binding reward (a referral_bonus grant plus points).
type ReferralService struct {
	db        *pgxpool.Pool
	referrals *repository.ReferralRepository
	grants    *GrantService
	points    *PointsService

	bonusRate     decimal.Decimal
	bonusDuration time.Duration
	bonusPoints   int64
}

func NewReferralService(db *pgxpool.Pool, grants *GrantService, points *PointsService, bonusRate decimal.Decimal, bonusDuration time.Duration, bonusPoints int64) *ReferralService {
	return &ReferralService{
		db:            db,
		referrals:     repository.NewReferralRepository(db),
		grants:        grants,
		points:        points,
		bonusRate:     bonusRate,
		bonusDuration: bonusDuration,
		bonusPoints:   bonusPoints,
	}
}

// Code returns the account's referral code, minting one if needed
func (s *ReferralService) Code(ctx context.Context, accountID int64) (string, error) {
	return s.referrals.GetOrCreateCode(ctx, accountID)
}

// Stats returns referee count and lifetime rebates for an account
func (s *ReferralService) Stats(ctx context.Context, accountID int64) (*repository.ReferralStats, error) {
	return s.referrals.GetStats(ctx, accountID)
}

// Bind attaches the referee to the owner of the code. The edge is immutable
// and unique per referee; a second bind fails with ErrAlreadyBound.
func (s *ReferralService) Bind(ctx context.Context, refereeID int64, code string) error {
	referrerID, err := s.referrals.GetAccountByCode(ctx, code)
	if err != nil {
		return err
	}
	if referrerID == refereeID {
		return ErrSelfReferral
	}

	if err := s.referrals.Bind(ctx, referrerID, refereeID, code); err != nil {
		return err
	}

	// Binding reward for the referrer. The bind itself already committed;
	// a failed reward is logged, not rolled back.
	if _, err := s.grants.CreateGrant(ctx, referrerID, domain.GrantReferralBonus, s.bonusRate, s.bonusDuration, false); err != nil {
		logger.Error("failed to create referral bonus grant",
			"referrer_id", referrerID, "referee_id", refereeID, "error", err)
	}
	if s.bonusPoints > 0 {
		if _, err := s.points.AddPoints(ctx, referrerID, s.bonusPoints, domain.PointsReferral, &refereeID); err != nil {
			logger.Error("failed to award referral points",
				"referrer_id", referrerID, "referee_id", refereeID, "error", err)
		}
	}

	return nil
}
