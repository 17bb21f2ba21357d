package repository

import (
	"context"
	"errors"
	"time"

	"coinmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
)

const accountColumns = `id, tg_id, COALESCE(username, ''), balance::text, lifetime_earned::text,
	settled_at, rebate_settled_at, level, level_points, country_multiplier::text,
	bonus_until, status, created_at`

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

type accountRow interface {
	Scan(dest ...any) error
}

func scanAccount(row accountRow) (*domain.Account, error) {
	var (
		a                       domain.Account
		balance, lifetime, mult string
		status                  string
	)
	if err := row.Scan(
		&a.ID, &a.TgID, &a.Username, &balance, &lifetime,
		&a.SettledAt, &a.RebateSettledAt, &a.Level, &a.LevelPoints, &mult,
		&a.BonusUntil, &status, &a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, err
	}
	if a.LifetimeEarned, err = decimal.NewFromString(lifetime); err != nil {
		return nil, err
	}
	if a.CountryMultiplier, err = decimal.NewFromString(mult); err != nil {
		return nil, err
	}
	a.Status = domain.AccountStatus(status)
	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *AccountRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE tg_id = $1`, tgID))
}

// Create inserts a new account with an empty balance and both cursors at now
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO accounts (tg_id, username)
		 VALUES ($1, $2)
		 RETURNING id, balance::text, settled_at, rebate_settled_at, level, level_points, status, created_at`,
		a.TgID, a.Username,
	).Scan(&a.ID, new(string), &a.SettledAt, &a.RebateSettledAt, &a.Level, &a.LevelPoints, (*string)(&a.Status), &a.CreatedAt)
}

// LockForUpdate reads the account row under FOR UPDATE inside an open
// transaction. All balance/cursor/points writers go through this.
func (r *AccountRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	return scanAccount(tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

// CreditSettlementWithTx applies one settlement result atomically: balance and
// lifetime move by amount while the cursor advances. Ledger write and cursor
// advancement share the surrounding transaction, so both land or neither does.
func (r *AccountRepository) CreditSettlementWithTx(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal, cursor time.Time) (decimal.Decimal, error) {
	var newBalance string
	err := tx.QueryRow(ctx,
		`UPDATE accounts
		 SET balance = balance + $1::numeric,
		     lifetime_earned = lifetime_earned + $1::numeric,
		     settled_at = GREATEST(settled_at, $2)
		 WHERE id = $3
		 RETURNING balance::text`,
		amount.String(), cursor, id,
	).Scan(&newBalance)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(newBalance)
}

// AdvanceCursorWithTx moves the settlement cursor forward without a credit
// (zero-accrual window). GREATEST keeps the cursor monotonic.
func (r *AccountRepository) AdvanceCursorWithTx(ctx context.Context, tx pgx.Tx, id int64, cursor time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE accounts SET settled_at = GREATEST(settled_at, $1) WHERE id = $2`,
		cursor, id)
	return err
}

// CreditRebateWithTx credits a rebate and advances the rebate cursor in one statement
func (r *AccountRepository) CreditRebateWithTx(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal, cursor time.Time) (decimal.Decimal, error) {
	var newBalance string
	err := tx.QueryRow(ctx,
		`UPDATE accounts
		 SET balance = balance + $1::numeric,
		     lifetime_earned = lifetime_earned + $1::numeric,
		     rebate_settled_at = GREATEST(rebate_settled_at, $2)
		 WHERE id = $3
		 RETURNING balance::text`,
		amount.String(), cursor, id,
	).Scan(&newBalance)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(newBalance)
}

// AdvanceRebateCursorWithTx moves the rebate cursor forward without a credit
func (r *AccountRepository) AdvanceRebateCursorWithTx(ctx context.Context, tx pgx.Tx, id int64, cursor time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE accounts SET rebate_settled_at = GREATEST(rebate_settled_at, $1) WHERE id = $2`,
		cursor, id)
	return err
}

// DebitWithTx deducts amount, guarded by the non-negative balance constraint
func (r *AccountRepository) DebitWithTx(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance string
	err := tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance - $1::numeric
		 WHERE id = $2 AND balance >= $1::numeric
		 RETURNING balance::text`,
		amount.String(), id,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			_ = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
			if !exists {
				return decimal.Zero, ErrAccountNotFound
			}
			return decimal.Zero, ErrInsufficientFunds
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(newBalance)
}

// CreditWithTx adds amount to balance only (manual adjustments)
func (r *AccountRepository) CreditWithTx(ctx context.Context, tx pgx.Tx, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var newBalance string
	err := tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $1::numeric WHERE id = $2 RETURNING balance::text`,
		amount.String(), id,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(newBalance)
}

// SetLevelWithTx persists the outcome of a level cascade
func (r *AccountRepository) SetLevelWithTx(ctx context.Context, tx pgx.Tx, id int64, level int, points int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE accounts SET level = $1, level_points = $2 WHERE id = $3`,
		level, points, id)
	return err
}

// SetBonusUntil opens (or extends) the daily bonus window
func (r *AccountRepository) SetBonusUntil(ctx context.Context, id int64, until time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET bonus_until = $1 WHERE id = $2`, until, id)
	return err
}

// SettlementCandidates returns accounts that have at least one mining grant
// still unsettled: the grant expires after the account's cursor, so even a
// grant that expired moments ago contributes its final partial interval.
func (r *AccountRepository) SettlementCandidates(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT a.id
		FROM accounts a
		JOIN grants g ON g.account_id = a.id
		WHERE a.status = 'normal'
		  AND g.status = 'mining'
		  AND g.expires_at > a.settled_at
		ORDER BY a.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
