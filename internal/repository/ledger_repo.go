package repository

import (
	"context"
	"errors"

	"coinmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository appends to and reads the append-only balance ledger.
// There are deliberately no update or delete methods.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CreateWithTx appends an entry inside the caller's transaction so the entry
// and the balance change it describes commit together.
func (r *LedgerRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	return tx.QueryRow(ctx,
		`INSERT INTO ledger_entries (account_id, kind, amount, balance_after, note, related_account_id)
		 VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)
		 RETURNING id, created_at`,
		e.AccountID, string(e.Kind), e.Amount.String(), e.BalanceAfter.String(), e.Note, e.RelatedAccountID,
	).Scan(&e.ID, &e.CreatedAt)
}

// GetByAccount returns recent entries, newest first
func (r *LedgerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, account_id, kind, amount::text, balance_after::text, note, related_account_id, created_at
		 FROM ledger_entries
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var (
			e            domain.LedgerEntry
			kind         string
			amount, bal  string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &kind, &amount, &bal, &e.Note, &e.RelatedAccountID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if e.BalanceAfter, err = decimal.NewFromString(bal); err != nil {
			return nil, err
		}
		e.Kind = domain.LedgerKind(kind)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CountByAccountKind counts entries of one kind for an account
func (r *LedgerRepository) CountByAccountKind(ctx context.Context, accountID int64, kind domain.LedgerKind) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1 AND kind = $2`,
		accountID, string(kind)).Scan(&n)
	return n, err
}

// SumByAccountKind totals entries of one kind for an account
func (r *LedgerRepository) SumByAccountKind(ctx context.Context, accountID int64, kind domain.LedgerKind) (decimal.Decimal, error) {
	var sum string
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entries WHERE account_id = $1 AND kind = $2`,
		accountID, string(kind)).Scan(&sum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}
