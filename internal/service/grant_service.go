package service

import (
	"context"
	"errors"
	"time"

	"coinmine/internal/domain"
	"coinmine/internal/rate"
	"coinmine/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidGrant        = errors.New("invalid grant parameters")
	ErrDurationCapExceeded = errors.New("grant duration cap exceeded")
	ErrAccountUnavailable  = errors.New("account is not active")
)

// GrantService is the write surface for grants, called by reward-trigger
// controllers (ad view, check-in, referral, purchase). Every mutation
// invalidates the cached rate before reporting success.
type GrantService struct {
	db          *pgxpool.Pool
	grants      *repository.GrantRepository
	accounts    *repository.AccountRepository
	cache       *rate.Cache
	durationCap time.Duration
	bonusWindow time.Duration
}

func NewGrantService(db *pgxpool.Pool, cache *rate.Cache, durationCap, bonusWindow time.Duration) *GrantService {
	return &GrantService{
		db:          db,
		grants:      repository.NewGrantRepository(db),
		accounts:    repository.NewAccountRepository(db),
		cache:       cache,
		durationCap: durationCap,
		bonusWindow: bonusWindow,
	}
}

// CreateGrant opens a new time-bounded accrual right. For paid tiers the
// caller passes the pre-multiplied frozen rate; the service stores rates
// verbatim either way.
func (s *GrantService) CreateGrant(ctx context.Context, accountID int64, typ domain.GrantType, baseRate decimal.Decimal, duration time.Duration, bonusFlag bool) (*domain.Grant, error) {
	if !typ.Valid() || baseRate.Sign() <= 0 || duration <= 0 {
		return nil, ErrInvalidGrant
	}
	if duration > s.durationCap {
		return nil, ErrDurationCapExceeded
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.Status != domain.AccountNormal {
		return nil, ErrAccountUnavailable
	}

	g := &domain.Grant{
		AccountID:     accountID,
		Type:          typ,
		BaseRate:      baseRate,
		ExpiresAt:     time.Now().UTC().Add(duration),
		BonusEligible: bonusFlag,
	}
	if err := s.grants.Create(ctx, g); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, accountID)
	return g, nil
}

// ExtendGrant moves a grant's expiry later, capped so the total remaining
// duration never exceeds the configured maximum.
func (s *GrantService) ExtendGrant(ctx context.Context, grantID int64, additional time.Duration) (time.Time, error) {
	if additional <= 0 {
		return time.Time{}, ErrInvalidGrant
	}

	g, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return time.Time{}, err
	}
	if g.Status != domain.GrantMining {
		return time.Time{}, repository.ErrGrantNotFound
	}

	now := time.Now().UTC()
	newExpiry := g.ExpiresAt.Add(additional)
	if newExpiry.Sub(now) > s.durationCap {
		return time.Time{}, ErrDurationCapExceeded
	}

	if err := s.grants.Extend(ctx, grantID, newExpiry); err != nil {
		return time.Time{}, err
	}

	s.cache.Invalidate(ctx, g.AccountID)
	return newExpiry, nil
}

// ActivateDailyBonus opens the account's bonus window; bonus-eligible grants
// earn the extra multiplier until it closes.
func (s *GrantService) ActivateDailyBonus(ctx context.Context, accountID int64) (time.Time, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return time.Time{}, err
	}
	if acct.Status != domain.AccountNormal {
		return time.Time{}, ErrAccountUnavailable
	}

	until := time.Now().UTC().Add(s.bonusWindow)
	if err := s.accounts.SetBonusUntil(ctx, accountID, until); err != nil {
		return time.Time{}, err
	}

	s.cache.Invalidate(ctx, accountID)
	return until, nil
}
