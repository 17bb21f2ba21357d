package http

import (
	"time"

	"coinmine/internal/accrual"
	"coinmine/internal/config"
	"coinmine/internal/http/handlers"
	"coinmine/internal/http/middleware"
	"coinmine/internal/jobs"
	"coinmine/internal/rate"
	"coinmine/internal/service"
	"coinmine/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

// Deps carries the wired application pieces into the router
type Deps struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Cfg       *config.Config
	Estimator *accrual.Estimator
	Grants    *service.GrantService
	Balance   *service.BalanceService
	Points    *service.PointsService
	Referrals *service.ReferralService
	Runner    *jobs.Runner
	Composer  *rate.Composer
	Stream    *ws.BalanceStream
	Version   string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.NewHandler(d.DB, d.Cfg.BotToken, d.Estimator, d.Grants, d.Balance,
		d.Points, d.Referrals, d.Runner, d.Composer)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Redis, d.Version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(d.Cfg.APIRateLimit, d.Cfg.APIRateWindow))

	// Auth
	v1.POST("/auth", middleware.RedisRateLimit(d.Cfg.AuthRateLimit, d.Cfg.AuthRateWindow), h.Auth)

	// Account surface
	v1.GET("/me", middleware.JWT(), h.Me)
	v1.GET("/balance", middleware.JWT(), h.Balance)
	v1.GET("/ledger", middleware.JWT(), h.Ledger)
	v1.POST("/balance/debit", middleware.JWT(), h.Debit)

	// Grants
	serviceKey := middleware.ServiceKey(d.Cfg.ServiceKey)
	v1.GET("/grants", middleware.JWT(), h.MyGrants)
	v1.POST("/grants", serviceKey, h.CreateGrant)
	v1.POST("/grants/:id/extend", serviceKey, h.ExtendGrant)
	v1.POST("/bonus/claim", middleware.JWT(), middleware.AccountRateLimit(5, time.Minute), h.ClaimBonus)

	// Points & levels
	v1.GET("/level", middleware.JWT(), h.MyLevel)
	v1.GET("/points/events", middleware.JWT(), h.MyPointsEvents)
	v1.POST("/points/add", serviceKey, h.AddPoints)
	v1.POST("/points/deduct", serviceKey, h.DeductPoints)

	// Referrals
	referral := v1.Group("/referral")
	referral.Use(middleware.JWT())
	{
		referral.GET("/code", h.ReferralCode)
		referral.GET("/stats", h.ReferralStats)
		referral.POST("/bind", h.BindReferral)
	}

	// Operator surface, service key only
	admin := v1.Group("/admin")
	admin.Use(serviceKey)
	{
		admin.POST("/jobs/settlement", h.TriggerSettlement)
		admin.POST("/jobs/rebate", h.TriggerRebate)
		admin.POST("/levels/reload", h.ReloadLevels)
		admin.POST("/adjust", h.Adjust)
	}

	// WebSocket balance stream
	r.GET("/ws/balance", h.WS(d.Stream))
}
