package repository

import (
	"context"

	"coinmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PointsRepository struct {
	db *pgxpool.Pool
}

func NewPointsRepository(db *pgxpool.Pool) *PointsRepository {
	return &PointsRepository{db: db}
}

// CreateEventWithTx appends a points event inside the caller's transaction
func (r *PointsRepository) CreateEventWithTx(ctx context.Context, tx pgx.Tx, e *domain.PointsEvent) error {
	return tx.QueryRow(ctx,
		`INSERT INTO points_events (account_id, delta, category, related_account_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		e.AccountID, e.Delta, string(e.Category), e.RelatedAccountID,
	).Scan(&e.ID, &e.CreatedAt)
}

// GetEventsByAccount returns recent point events, newest first
func (r *PointsRepository) GetEventsByAccount(ctx context.Context, accountID int64, limit int) ([]*domain.PointsEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, account_id, delta, category, related_account_id, created_at
		 FROM points_events
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.PointsEvent
	for rows.Next() {
		var (
			e        domain.PointsEvent
			category string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Delta, &category, &e.RelatedAccountID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Category = domain.PointsCategory(category)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// LoadLevelConfig reads the raw level table rows ordered by level
func (r *PointsRepository) LoadLevelConfig(ctx context.Context) ([]domain.LevelConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT level, min_points, max_points, rate_multiplier::text
		 FROM level_config ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.LevelConfig
	for rows.Next() {
		var (
			c    domain.LevelConfig
			mult string
		)
		if err := rows.Scan(&c.Level, &c.MinPoints, &c.MaxPoints, &mult); err != nil {
			return nil, err
		}
		if c.RateMultiplier, err = decimal.NewFromString(mult); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}
