package rate

import (
	"testing"
	"time"

	"coinmine/internal/domain"

	"github.com/shopspring/decimal"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLevels(t *testing.T) *domain.LevelTable {
	t.Helper()
	tbl, err := domain.NewLevelTable([]domain.LevelConfig{
		{Level: 1, MaxPoints: 100, RateMultiplier: dec("1.0")},
		{Level: 2, MaxPoints: 300, RateMultiplier: dec("1.1")},
		{Level: 3, MaxPoints: 900, RateMultiplier: dec("1.25")},
	})
	if err != nil {
		t.Fatalf("level table: %v", err)
	}
	return tbl
}

func account(level int, country string) *domain.Account {
	return &domain.Account{
		ID:                1,
		Level:             level,
		CountryMultiplier: dec(country),
		Status:            domain.AccountNormal,
	}
}

func grant(typ domain.GrantType, rate string, bonusEligible bool) *domain.Grant {
	return &domain.Grant{
		ID:            1,
		AccountID:     1,
		Type:          typ,
		BaseRate:      dec(rate),
		CreatedAt:     now.Add(-time.Hour),
		ExpiresAt:     now.Add(time.Hour),
		BonusEligible: bonusEligible,
		Status:        domain.GrantMining,
	}
}

func TestGrantRate_FreeGrantComposition(t *testing.T) {
	c := NewComposer(testLevels(t), dec("1.36"))
	acct := account(2, "1.5")
	g := grant(domain.GrantAdReward, "0.0000000000001", false)

	got := c.GrantRate(acct, g, now)
	want := dec("0.0000000000001").Mul(dec("1.1")).Mul(dec("1.5"))
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestGrantRate_BonusGating(t *testing.T) {
	c := NewComposer(testLevels(t), dec("1.36"))
	g := grant(domain.GrantAdReward, "2", true)

	// bonus window inactive: no bonus multiplier
	acct := account(1, "1.0")
	if got := c.GrantRate(acct, g, now); !got.Equal(dec("2")) {
		t.Fatalf("inactive bonus: got %s, want 2", got)
	}

	// bonus window active and grant eligible
	until := now.Add(time.Hour)
	acct.BonusUntil = &until
	if got := c.GrantRate(acct, g, now); !got.Equal(dec("2").Mul(dec("1.36"))) {
		t.Fatalf("active bonus: got %s", got)
	}

	// bonus window active but grant not eligible
	g2 := grant(domain.GrantDailyCheckin, "2", false)
	if got := c.GrantRate(acct, g2, now); !got.Equal(dec("2")) {
		t.Fatalf("ineligible grant: got %s, want 2", got)
	}
}

func TestGrantRate_PaidGrantFrozen(t *testing.T) {
	c := NewComposer(testLevels(t), dec("1.36"))
	g := grant(domain.GrantPaidTier2, "0.000005", true)

	until := now.Add(time.Hour)
	acct := account(3, "2.0")
	acct.BonusUntil = &until

	// level, country and bonus must all be ignored for a paid grant
	if got := c.GrantRate(acct, g, now); !got.Equal(dec("0.000005")) {
		t.Fatalf("got %s, want frozen 0.000005", got)
	}

	// changing the account after purchase changes nothing
	acct.Level = 1
	acct.CountryMultiplier = dec("0.5")
	if got := c.GrantRate(acct, g, now); !got.Equal(dec("0.000005")) {
		t.Fatalf("after account change: got %s, want 0.000005", got)
	}
}

func TestGrantRate_SkipsMalformed(t *testing.T) {
	c := NewComposer(testLevels(t), dec("1.36"))
	acct := account(1, "1.0")

	neg := grant(domain.GrantAdReward, "-1", false)
	if !c.GrantRate(acct, neg, now).IsZero() {
		t.Fatal("negative base rate must contribute zero")
	}

	inverted := grant(domain.GrantAdReward, "1", false)
	inverted.ExpiresAt = inverted.CreatedAt
	if !c.GrantRate(acct, inverted, now).IsZero() {
		t.Fatal("grant with expiry <= creation must contribute zero")
	}
}

func TestPerSecond_SumsActiveGrants(t *testing.T) {
	c := NewComposer(testLevels(t), dec("1.36"))
	acct := account(1, "1.0")

	g1 := grant(domain.GrantAdReward, "1", false)
	g2 := grant(domain.GrantPaidTier1, "3", false)

	expired := grant(domain.GrantAdReward, "100", false)
	expired.ExpiresAt = now.Add(-time.Minute)

	completed := grant(domain.GrantAdReward, "100", false)
	completed.Status = domain.GrantCompleted

	got := c.PerSecond(acct, []*domain.Grant{g1, g2, expired, completed}, now)
	if !got.Equal(dec("4")) {
		t.Fatalf("got %s, want 4", got)
	}
}

func TestPerSecond_LevelChangeIsLive(t *testing.T) {
	c := NewComposer(testLevels(t), dec("1.36"))
	acct := account(1, "1.0")
	g := grant(domain.GrantAdReward, "10", false)

	before := c.PerSecond(acct, []*domain.Grant{g}, now)
	acct.Level = 3
	after := c.PerSecond(acct, []*domain.Grant{g}, now)

	if !before.Equal(dec("10")) || !after.Equal(dec("12.5")) {
		t.Fatalf("before %s after %s; want 10 then 12.5", before, after)
	}
}
