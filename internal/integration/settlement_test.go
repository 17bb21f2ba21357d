package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"coinmine/internal/domain"
	"coinmine/internal/jobs"
	"coinmine/internal/rate"
	"coinmine/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var tgIDSeq atomic.Int64

func nextTgID() int64 {
	return time.Now().UnixNano() + tgIDSeq.Add(1)
}

func newTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	applyMigrations(t, db)
	return db
}

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func newComposer(t *testing.T, db *pgxpool.Pool) *rate.Composer {
	t.Helper()
	rows, err := repository.NewPointsRepository(db).LoadLevelConfig(context.Background())
	if err != nil {
		t.Fatalf("load level config: %v", err)
	}
	table, err := domain.NewLevelTable(rows)
	if err != nil {
		t.Fatalf("build level table: %v", err)
	}
	return rate.NewComposer(table, decimal.RequireFromString("1.36"))
}

// createBackdatedAccount inserts an account whose settlement cursors sit ago in
// the past, so a job run has a real window to settle.
func createBackdatedAccount(t *testing.T, db *pgxpool.Pool, ago time.Duration) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO accounts (tg_id, username, settled_at, rebate_settled_at)
		 VALUES ($1, 'itest', NOW() - $2::interval, NOW() - $2::interval)
		 RETURNING id`,
		nextTgID(), ago.String()).Scan(&id)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return id
}

func insertBackdatedGrant(t *testing.T, db *pgxpool.Pool, accountID int64, typ string, baseRate string, createdAgo, lifetime time.Duration) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO grants (account_id, type, base_rate, created_at, expires_at)
		 VALUES ($1, $2, $3::numeric, NOW() - $4::interval, NOW() - $4::interval + $5::interval)
		 RETURNING id`,
		accountID, typ, baseRate, createdAgo.String(), lifetime.String()).Scan(&id)
	if err != nil {
		t.Fatalf("insert grant: %v", err)
	}
	return id
}

func accountBalance(t *testing.T, db *pgxpool.Pool, id int64) decimal.Decimal {
	t.Helper()
	acct, err := repository.NewAccountRepository(db).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return acct.Balance
}

func TestSettlementCreditsWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acctID := createBackdatedAccount(t, db, time.Hour)
	insertBackdatedGrant(t, db, acctID, "ad_reward", "0.001", time.Hour, 2*time.Hour)

	settlement := jobs.NewSettlement(db, newComposer(t, db))
	if _, err := settlement.Run(ctx); err != nil {
		t.Fatalf("settlement run: %v", err)
	}

	// level 1, country 1.0, no bonus: effective rate == base rate.
	// The window is one hour plus the moments between insert and run.
	balance := accountBalance(t, db, acctID)
	min := decimal.RequireFromString("3.6")
	max := decimal.RequireFromString("3.62")
	if balance.LessThan(min) || balance.GreaterThan(max) {
		t.Fatalf("expected balance near 3.6, got %s", balance)
	}

	// cursor advanced past the old position
	acct, err := repository.NewAccountRepository(db).GetByID(ctx, acctID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if time.Since(acct.SettledAt) > time.Minute {
		t.Fatalf("cursor not advanced: %s", acct.SettledAt)
	}
	if !acct.LifetimeEarned.Equal(balance) {
		t.Fatalf("lifetime earned %s != balance %s", acct.LifetimeEarned, balance)
	}

	// exactly one accrual ledger entry
	n, err := repository.NewLedgerRepository(db).CountByAccountKind(ctx, acctID, domain.LedgerMiningAccrual)
	if err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 accrual entry, got %d", n)
	}
}

func TestSettlementDoesNotDoubleCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acctID := createBackdatedAccount(t, db, time.Hour)
	insertBackdatedGrant(t, db, acctID, "ad_reward", "0.001", time.Hour, 3*time.Hour)

	settlement := jobs.NewSettlement(db, newComposer(t, db))
	if _, err := settlement.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := accountBalance(t, db, acctID)

	// an immediate re-run covers at most the seconds between the two runs
	if _, err := settlement.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := accountBalance(t, db, acctID)

	delta := second.Sub(first)
	limit := decimal.RequireFromString("0.01") // 10 seconds of slack at 0.001/s
	if delta.GreaterThan(limit) {
		t.Fatalf("second run re-credited the window: delta %s", delta)
	}
}

func TestSettlementCompletesExpiredGrants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acctID := createBackdatedAccount(t, db, 2*time.Hour)
	// grant fully inside the window: settled for its whole life, then completed
	grantID := insertBackdatedGrant(t, db, acctID, "ad_reward", "0.001", 90*time.Minute, time.Hour)

	settlement := jobs.NewSettlement(db, newComposer(t, db))
	if _, err := settlement.Run(ctx); err != nil {
		t.Fatalf("settlement run: %v", err)
	}

	balance := accountBalance(t, db, acctID)
	expected := decimal.RequireFromString("3.6") // 3600s * 0.001
	if !balance.Equal(expected) {
		t.Fatalf("expected exactly %s for a fully elapsed grant, got %s", expected, balance)
	}

	var status string
	if err := db.QueryRow(ctx, `SELECT status FROM grants WHERE id = $1`, grantID).Scan(&status); err != nil {
		t.Fatalf("read grant status: %v", err)
	}
	if status != string(domain.GrantCompleted) {
		t.Fatalf("expected grant completed, got %s", status)
	}
}
