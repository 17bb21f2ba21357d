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

var ErrGrantNotFound = errors.New("grant not found")

const grantColumns = `id, account_id, type, base_rate::text, created_at, expires_at, bonus_eligible, status`

type GrantRepository struct {
	db *pgxpool.Pool
}

func NewGrantRepository(db *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{db: db}
}

func scanGrant(row accountRow) (*domain.Grant, error) {
	var (
		g            domain.Grant
		rate         string
		typ, status  string
	)
	if err := row.Scan(&g.ID, &g.AccountID, &typ, &rate, &g.CreatedAt, &g.ExpiresAt, &g.BonusEligible, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	var err error
	if g.BaseRate, err = decimal.NewFromString(rate); err != nil {
		return nil, err
	}
	g.Type = domain.GrantType(typ)
	g.Status = domain.GrantStatus(status)
	return &g, nil
}

func scanGrants(rows pgx.Rows) ([]*domain.Grant, error) {
	defer rows.Close()
	var grants []*domain.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *GrantRepository) Create(ctx context.Context, g *domain.Grant) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO grants (account_id, type, base_rate, expires_at, bonus_eligible)
		 VALUES ($1, $2, $3::numeric, $4, $5)
		 RETURNING id, created_at, status`,
		g.AccountID, string(g.Type), g.BaseRate.String(), g.ExpiresAt, g.BonusEligible,
	).Scan(&g.ID, &g.CreatedAt, (*string)(&g.Status))
}

func (r *GrantRepository) GetByID(ctx context.Context, id int64) (*domain.Grant, error) {
	return scanGrant(r.db.QueryRow(ctx,
		`SELECT `+grantColumns+` FROM grants WHERE id = $1`, id))
}

// ActiveByAccount returns the account's mining grants that have not expired yet
func (r *GrantRepository) ActiveByAccount(ctx context.Context, accountID int64, now time.Time) ([]*domain.Grant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+grantColumns+` FROM grants
		 WHERE account_id = $1 AND status = 'mining' AND expires_at > $2
		 ORDER BY id`,
		accountID, now)
	if err != nil {
		return nil, err
	}
	return scanGrants(rows)
}

// UnsettledByAccountWithTx returns mining grants whose interval reaches past
// the cursor, including grants that expired inside the open window. Read
// inside the settlement transaction so the snapshot matches the locked row.
func (r *GrantRepository) UnsettledByAccountWithTx(ctx context.Context, tx pgx.Tx, accountID int64, cursor time.Time) ([]*domain.Grant, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+grantColumns+` FROM grants
		 WHERE account_id = $1 AND status = 'mining' AND expires_at > $2
		 ORDER BY id`,
		accountID, cursor)
	if err != nil {
		return nil, err
	}
	return scanGrants(rows)
}

// ByAccountTypesWindowWithTx returns an account's grants of the given types
// overlapping [start, end), regardless of status (a completed grant still
// counts for the window it was mining in).
func (r *GrantRepository) ByAccountTypesWindowWithTx(ctx context.Context, tx pgx.Tx, accountID int64, types []string, start, end time.Time) ([]*domain.Grant, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+grantColumns+` FROM grants
		 WHERE account_id = $1
		   AND type = ANY($2)
		   AND status <> 'error'
		   AND expires_at > $3
		   AND created_at < $4
		 ORDER BY id`,
		accountID, types, start, end)
	if err != nil {
		return nil, err
	}
	return scanGrants(rows)
}

// Extend moves the expiry later. The duration cap is enforced by the caller;
// the WHERE clause keeps the update off completed grants.
func (r *GrantRepository) Extend(ctx context.Context, id int64, newExpiry time.Time) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE grants SET expires_at = $1 WHERE id = $2 AND status = 'mining'`,
		newExpiry, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// CompleteExpiredWithTx flips mining grants whose expiry has passed to
// completed. Called after their final partial interval has been credited.
func (r *GrantRepository) CompleteExpiredWithTx(ctx context.Context, tx pgx.Tx, accountID int64, now time.Time) (int64, error) {
	ct, err := tx.Exec(ctx,
		`UPDATE grants SET status = 'completed'
		 WHERE account_id = $1 AND status = 'mining' AND expires_at <= $2`,
		accountID, now)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// MarkError parks a grant that failed invariant checks so it stops feeding
// rate and settlement computations.
func (r *GrantRepository) MarkError(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE grants SET status = 'error' WHERE id = $1 AND status = 'mining'`, id)
	return err
}
