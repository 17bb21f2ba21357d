package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"coinmine/internal/db"
	"coinmine/internal/domain"
	"coinmine/internal/repository"
	"coinmine/internal/service"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Creates (or finds) a test account, opens an ad-reward grant on it and
// prints a JWT, so a fresh deployment can be poked without the Telegram flow.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	tgID := flag.Int64("tg-id", 1234567890, "telegram id of the test account")
	rate := flag.String("rate", "0.0001", "grant base rate, coin per second")
	hours := flag.Int("hours", 24, "grant duration in hours")
	flag.Parse()

	pool := db.Connect(dsn)
	defer pool.Close()

	accounts := repository.NewAccountRepository(pool)
	grants := repository.NewGrantRepository(pool)
	ctx := context.Background()

	acct, err := accounts.GetByTgID(ctx, *tgID)
	if err == nil {
		log.Printf("account already exists id=%d\n", acct.ID)
	} else {
		acct = &domain.Account{
			TgID:     *tgID,
			Username: "testaccount",
		}
		if err := accounts.Create(ctx, acct); err != nil {
			log.Fatalf("create account failed: %v", err)
		}
		log.Printf("account created id=%d\n", acct.ID)
	}

	baseRate, err := decimal.NewFromString(*rate)
	if err != nil {
		log.Fatalf("invalid rate: %v", err)
	}
	g := &domain.Grant{
		AccountID:     acct.ID,
		Type:          domain.GrantAdReward,
		BaseRate:      baseRate,
		ExpiresAt:     time.Now().UTC().Add(time.Duration(*hours) * time.Hour),
		BonusEligible: true,
	}
	if err := grants.Create(ctx, g); err != nil {
		log.Fatalf("create grant failed: %v", err)
	}
	log.Printf("grant created id=%d rate=%s expires_at=%v\n", g.ID, g.BaseRate, g.ExpiresAt)

	service.InitJWT(secret)
	token, err := service.GenerateJWT(acct.ID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
