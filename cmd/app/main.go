package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinmine/internal/accrual"
	"coinmine/internal/config"
	"coinmine/internal/db"
	"coinmine/internal/domain"
	httpServer "coinmine/internal/http"
	"coinmine/internal/http/middleware"
	"coinmine/internal/jobs"
	"coinmine/internal/logger"
	"coinmine/internal/rate"
	"coinmine/internal/repository"
	"coinmine/internal/service"
	"coinmine/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	// One Redis client shared by the rate cache, the request limiter and the
	// job lock. Optional: without it the cache and limiter are no-ops and the
	// jobs run in single-instance mode.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, continuing degraded", "error", err)
		}
		cancel()
	}

	// Level table is loaded once at startup; a broken table refuses to start.
	// Operators swap it at runtime through the reload endpoint.
	pointsRepo := repository.NewPointsRepository(dbPool)
	levelRows, err := pointsRepo.LoadLevelConfig(context.Background())
	if err != nil {
		logger.Fatal("failed to load level config", "error", err)
	}
	levelTable, err := domain.NewLevelTable(levelRows)
	if err != nil {
		logger.Fatal("invalid level config", "error", err)
	}

	composer := rate.NewComposer(levelTable, cfg.BonusMultiplierDecimal())
	rateCache := rate.NewCache(redisClient, cfg.RateCacheTTL)

	accounts := repository.NewAccountRepository(dbPool)
	grants := repository.NewGrantRepository(dbPool)
	estimator := accrual.NewEstimator(accounts, grants, composer, rateCache)

	grantSvc := service.NewGrantService(dbPool, rateCache, cfg.GrantDurationCap, cfg.BonusWindow)
	balanceSvc := service.NewBalanceService(dbPool)
	pointsSvc := service.NewPointsService(dbPool, composer, rateCache)
	referralSvc := service.NewReferralService(dbPool, grantSvc, pointsSvc,
		cfg.ReferralBonusRateDecimal(), cfg.ReferralBonusDuration, cfg.ReferralPoints)

	settlement := jobs.NewSettlement(dbPool, composer)
	rebate := jobs.NewRebate(dbPool, composer, cfg.RebateRateDecimal(), cfg.RebateEligible())
	runner := jobs.NewRunner(settlement, rebate, jobs.NewLocker(redisClient), cfg.JobLockTTL)

	scheduler, err := jobs.NewScheduler(runner, cfg.SettlementCron, cfg.RebateCron)
	if err != nil {
		logger.Fatal("invalid job schedule", "error", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Service-Key")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(redisClient)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		DB:        dbPool,
		Redis:     redisClient,
		Cfg:       cfg,
		Estimator: estimator,
		Grants:    grantSvc,
		Balance:   balanceSvc,
		Points:    pointsSvc,
		Referrals: referralSvc,
		Runner:    runner,
		Composer:  composer,
		Stream:    ws.NewBalanceStream(estimator, time.Second),
		Version:   version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
