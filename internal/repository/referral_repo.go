package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"coinmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAlreadyBound     = errors.New("referral already bound")
	ErrReferralNotFound = errors.New("referral code not found")
)

type ReferralStats struct {
	TotalReferees int    `json:"total_referees"`
	TotalRebates  string `json:"total_rebates"`
}

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// GenerateReferralCode generates a random referral code
func GenerateReferralCode() string {
	bytes := make([]byte, 6)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// GetOrCreateCode returns the account's referral code, minting one on first use
func (r *ReferralRepository) GetOrCreateCode(ctx context.Context, accountID int64) (string, error) {
	var code *string
	err := r.db.QueryRow(ctx,
		`SELECT referral_code FROM accounts WHERE id = $1`, accountID).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	if code != nil && *code != "" {
		return *code, nil
	}

	// retry a few times on the unlikely unique collision
	for i := 0; i < 5; i++ {
		candidate := GenerateReferralCode()
		ct, err := r.db.Exec(ctx,
			`UPDATE accounts SET referral_code = $1
			 WHERE id = $2 AND referral_code IS NULL`,
			candidate, accountID)
		if err != nil {
			continue
		}
		if ct.RowsAffected() == 1 {
			return candidate, nil
		}
		// someone else minted concurrently; read theirs
		if err := r.db.QueryRow(ctx,
			`SELECT referral_code FROM accounts WHERE id = $1`, accountID).Scan(&code); err == nil && code != nil {
			return *code, nil
		}
	}
	return "", errors.New("failed to mint referral code")
}

// GetAccountByCode resolves a referral code to its owner
func (r *ReferralRepository) GetAccountByCode(ctx context.Context, code string) (int64, error) {
	var accountID int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM accounts WHERE referral_code = $1`, code).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrReferralNotFound
		}
		return 0, err
	}
	return accountID, nil
}

// Bind creates the referrer→referee edge. The UNIQUE constraint on referee_id
// makes "at most one referrer" a database invariant, not a convention.
func (r *ReferralRepository) Bind(ctx context.Context, referrerID, refereeID int64, code string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`INSERT INTO referrals (referrer_id, referee_id, code)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (referee_id) DO NOTHING`,
		referrerID, refereeID, code)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrAlreadyBound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET referred_by = $1 WHERE id = $2 AND referred_by IS NULL`,
		referrerID, refereeID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Referrers returns the IDs of all accounts with at least one referee
func (r *ReferralRepository) Referrers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT r.referrer_id
		FROM referrals r
		JOIN accounts a ON a.id = r.referrer_id
		WHERE a.status = 'normal'
		ORDER BY r.referrer_id`)
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

// RefereesOf returns the referee account IDs bound to a referrer
func (r *ReferralRepository) RefereesOf(ctx context.Context, referrerID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT referee_id FROM referrals WHERE referrer_id = $1 ORDER BY referee_id`,
		referrerID)
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

// CreateAuditWithTx writes one referee's rebate contribution record
func (r *ReferralRepository) CreateAuditWithTx(ctx context.Context, tx pgx.Tx, a *domain.RebateAudit) error {
	return tx.QueryRow(ctx,
		`INSERT INTO rebate_audit (run_id, referrer_id, referee_id, accrued, contributed, window_start, window_end)
		 VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)
		 RETURNING id, created_at`,
		a.RunID, a.ReferrerID, a.RefereeID, a.Accrued.String(), a.Contributed.String(), a.WindowStart, a.WindowEnd,
	).Scan(&a.ID, &a.CreatedAt)
}

// AuditCount counts rebate audit rows for a referrer
func (r *ReferralRepository) AuditCount(ctx context.Context, referrerID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM rebate_audit WHERE referrer_id = $1`, referrerID).Scan(&n)
	return n, err
}

// GetStats returns referee count and lifetime rebate total for a referrer
func (r *ReferralRepository) GetStats(ctx context.Context, referrerID int64) (*ReferralStats, error) {
	stats := &ReferralStats{}
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`, referrerID).Scan(&stats.TotalReferees)
	if err != nil {
		return nil, err
	}
	err = r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text FROM ledger_entries
		 WHERE account_id = $1 AND kind = 'referral_rebate'`,
		referrerID).Scan(&stats.TotalRebates)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
