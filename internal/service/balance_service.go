package service

import (
	"context"
	"errors"

	"coinmine/internal/domain"
	"coinmine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// BalanceService owns the interactive write paths against the settled balance.
// Ledger entry and balance change always share one transaction.
type BalanceService struct {
	db       *pgxpool.Pool
	accounts *repository.AccountRepository
	ledger   *repository.LedgerRepository
}

func NewBalanceService(db *pgxpool.Pool) *BalanceService {
	return &BalanceService{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		ledger:   repository.NewLedgerRepository(db),
	}
}

// Debit removes amount from the settled balance (purchases, withdrawals).
// Lifetime earned is untouched: it only counts what was ever earned.
func (s *BalanceService) Debit(ctx context.Context, accountID int64, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.accounts.LockForUpdate(ctx, tx, accountID); err != nil {
		return decimal.Zero, err
	}

	newBalance, err := s.accounts.DebitWithTx(ctx, tx, accountID, amount)
	if err != nil {
		return decimal.Zero, err
	}

	entry := &domain.LedgerEntry{
		AccountID:    accountID,
		Kind:         domain.LedgerDebit,
		Amount:       amount.Neg(),
		BalanceAfter: newBalance,
		Note:         note,
	}
	if err := s.ledger.CreateWithTx(ctx, tx, entry); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// ManualAdjust applies a signed operator correction with a mandatory note
func (s *BalanceService) ManualAdjust(ctx context.Context, accountID int64, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	if amount.IsZero() || note == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.accounts.LockForUpdate(ctx, tx, accountID); err != nil {
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	if amount.Sign() > 0 {
		newBalance, err = s.accounts.CreditWithTx(ctx, tx, accountID, amount)
	} else {
		newBalance, err = s.accounts.DebitWithTx(ctx, tx, accountID, amount.Neg())
	}
	if err != nil {
		return decimal.Zero, err
	}

	entry := &domain.LedgerEntry{
		AccountID:    accountID,
		Kind:         domain.LedgerManualAdjust,
		Amount:       amount,
		BalanceAfter: newBalance,
		Note:         note,
	}
	if err := s.ledger.CreateWithTx(ctx, tx, entry); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// History returns recent ledger entries for an account
func (s *BalanceService) History(ctx context.Context, accountID int64, limit int) ([]*domain.LedgerEntry, error) {
	return s.ledger.GetByAccount(ctx, accountID, limit)
}
