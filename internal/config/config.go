package config

import (
	"strings"
	"time"

	"coinmine/internal/domain"
	"coinmine/internal/logger"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppPort     string `env:"APP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	// shared secret for internal/trigger endpoints (reward controllers, admin ops)
	ServiceKey string `env:"SERVICE_KEY"`
	BotToken   string `env:"BOT_TOKEN"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Settlement & rebate schedule (standard cron specs, fixed clock grid).
	// Rebate runs a few minutes after settlement so it reads settled state.
	SettlementCron string        `env:"SETTLEMENT_CRON" envDefault:"0 */2 * * *"`
	RebateCron     string        `env:"REBATE_CRON" envDefault:"10 */2 * * *"`
	JobLockTTL     time.Duration `env:"JOB_LOCK_TTL" envDefault:"30m"`

	RebateRate          string `env:"REBATE_RATE" envDefault:"0.20"`
	RebateEligibleTypes string `env:"REBATE_ELIGIBLE_TYPES" envDefault:"ad_reward"`
	BonusMultiplier     string `env:"BONUS_MULTIPLIER" envDefault:"1.36"`

	// Referral bind reward: the referrer gets a referral_bonus grant and points
	ReferralBonusRate     string        `env:"REFERRAL_BONUS_RATE" envDefault:"0.000000000000100000"`
	ReferralBonusDuration time.Duration `env:"REFERRAL_BONUS_DURATION" envDefault:"24h"`
	ReferralPoints        int64         `env:"REFERRAL_POINTS" envDefault:"50"`

	RateCacheTTL     time.Duration `env:"RATE_CACHE_TTL" envDefault:"60s"`
	GrantDurationCap time.Duration `env:"GRANT_DURATION_CAP" envDefault:"48h"`
	BonusWindow      time.Duration `env:"BONUS_WINDOW" envDefault:"24h"`

	APIRateLimit   int           `env:"API_RATE_LIMIT" envDefault:"60"`
	APIRateWindow  time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
}

// Load reads .env and the environment. Missing required settings are fatal.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		logger.Fatal("failed to parse config", "error", err)
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	if cfg.ServiceKey == "" {
		logger.Fatal("SERVICE_KEY is not set")
	}

	if _, err := decimal.NewFromString(cfg.RebateRate); err != nil {
		logger.Fatal("REBATE_RATE is not a valid decimal", "value", cfg.RebateRate)
	}
	if _, err := decimal.NewFromString(cfg.BonusMultiplier); err != nil {
		logger.Fatal("BONUS_MULTIPLIER is not a valid decimal", "value", cfg.BonusMultiplier)
	}
	if _, err := decimal.NewFromString(cfg.ReferralBonusRate); err != nil {
		logger.Fatal("REFERRAL_BONUS_RATE is not a valid decimal", "value", cfg.ReferralBonusRate)
	}

	return cfg
}

// RebateRateDecimal returns the rebate percentage as a decimal
func (c *Config) RebateRateDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.RebateRate)
	return d
}

// BonusMultiplierDecimal returns the temporary bonus multiplier as a decimal
func (c *Config) BonusMultiplierDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.BonusMultiplier)
	return d
}

// ReferralBonusRateDecimal returns the referral bonus grant's base rate
func (c *Config) ReferralBonusRateDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.ReferralBonusRate)
	return d
}

// RebateEligible returns the set of grant types whose accrual feeds referral rebates
func (c *Config) RebateEligible() map[domain.GrantType]bool {
	set := make(map[domain.GrantType]bool)
	for _, s := range strings.Split(c.RebateEligibleTypes, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		set[domain.GrantType(s)] = true
	}
	return set
}
