package accrual

import (
	"context"
	"time"

	"coinmine/internal/domain"
	"coinmine/internal/rate"
	"coinmine/internal/repository"

	"github.com/shopspring/decimal"
)

// Estimate is the live-display view of a balance: the last settled value plus
// rate × elapsed seconds. It is never persisted; settlement recomputes the
// real figure from grant intervals.
type Estimate struct {
	Balance       decimal.Decimal `json:"balance"`
	RatePerSecond decimal.Decimal `json:"rate_per_second"`
	SettledAt     time.Time       `json:"settled_at"`
}

// Estimator is the read path for live balances. It only ever reads; the cache
// in front of the composer absorbs the once-per-second client polling.
type Estimator struct {
	accounts *repository.AccountRepository
	grants   *repository.GrantRepository
	composer *rate.Composer
	cache    *rate.Cache
}

func NewEstimator(accounts *repository.AccountRepository, grants *repository.GrantRepository, composer *rate.Composer, cache *rate.Cache) *Estimator {
	return &Estimator{accounts: accounts, grants: grants, composer: composer, cache: cache}
}

// Rate returns the account's current composed per-second rate, cache first
func (e *Estimator) Rate(ctx context.Context, acct *domain.Account, now time.Time) (decimal.Decimal, error) {
	if r, ok := e.cache.Get(ctx, acct.ID); ok {
		return r, nil
	}
	grants, err := e.grants.ActiveByAccount(ctx, acct.ID, now)
	if err != nil {
		return decimal.Zero, err
	}
	r := e.composer.PerSecond(acct, grants, now)
	e.cache.Set(ctx, acct.ID, r)
	return r, nil
}

// EstimatedBalance returns the display balance for an account
func (e *Estimator) EstimatedBalance(ctx context.Context, accountID int64) (*Estimate, error) {
	now := time.Now().UTC()

	acct, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	r, err := e.Rate(ctx, acct, now)
	if err != nil {
		return nil, err
	}

	est := acct.Balance
	if elapsed := int64(now.Sub(acct.SettledAt) / time.Second); elapsed > 0 && r.Sign() > 0 {
		est = est.Add(r.Mul(decimal.NewFromInt(elapsed)))
	}

	return &Estimate{
		Balance:       est,
		RatePerSecond: r,
		SettledAt:     acct.SettledAt,
	}, nil
}
