package handlers

import (
	"coinmine/internal/accrual"
	"coinmine/internal/jobs"
	"coinmine/internal/rate"
	"coinmine/internal/repository"
	"coinmine/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	DB       *pgxpool.Pool
	BotToken string

	Accounts  *repository.AccountRepository
	Grants    *repository.GrantRepository
	PointsRpo *repository.PointsRepository

	Estimator  *accrual.Estimator
	GrantSvc   *service.GrantService
	BalanceSvc *service.BalanceService
	PointsSvc  *service.PointsService
	Referrals  *service.ReferralService
	Runner     *jobs.Runner
	Composer   *rate.Composer
}

func NewHandler(db *pgxpool.Pool, botToken string, estimator *accrual.Estimator,
	grants *service.GrantService, balance *service.BalanceService,
	points *service.PointsService, referrals *service.ReferralService,
	runner *jobs.Runner, composer *rate.Composer) *Handler {
	return &Handler{
		DB:         db,
		BotToken:   botToken,
		Accounts:   repository.NewAccountRepository(db),
		Grants:     repository.NewGrantRepository(db),
		PointsRpo:  repository.NewPointsRepository(db),
		Estimator:  estimator,
		GrantSvc:   grants,
		BalanceSvc: balance,
		PointsSvc:  points,
		Referrals:  referrals,
		Runner:     runner,
		Composer:   composer,
	}
}

// getAccountID pulls the authenticated account id out of the gin context
func getAccountID(c interface{ Get(string) (any, bool) }) (int64, bool) {
	val, ok := c.Get("account_id")
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
