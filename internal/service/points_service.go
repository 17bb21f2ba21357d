package service

import (
	"context"
	"errors"

	"coinmine/internal/domain"
	"coinmine/internal/rate"
	"coinmine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidDelta       = errors.New("invalid points delta")
	ErrInvalidCategory    = errors.New("invalid points category")
)

// PointsResult is the outcome of a points mutation
type PointsResult struct {
	NewLevel  int   `json:"new_level"`
	NewPoints int64 `json:"new_points"`
	LeveledUp bool  `json:"leveled_up"`
}

// PointsService applies point deltas and runs level progression. A level
// change shifts the account's rate multiplier, so the cached rate is dropped
// before success is reported.
type PointsService struct {
	db       *pgxpool.Pool
	accounts *repository.AccountRepository
	points   *repository.PointsRepository
	composer *rate.Composer
	cache    *rate.Cache
}

func NewPointsService(db *pgxpool.Pool, composer *rate.Composer, cache *rate.Cache) *PointsService {
	return &PointsService{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		points:   repository.NewPointsRepository(db),
		composer: composer,
		cache:    cache,
	}
}

// cascade carries points past level thresholds, possibly across several
// levels in one update, and returns the final (level, points). At the top
// level points simply pile up.
func cascade(levels *domain.LevelTable, level int, points int64) (int, int64) {
	for level < levels.MaxLevel() && points >= levels.At(level).MaxPoints {
		points -= levels.At(level).MaxPoints
		level++
	}
	return level, points
}

// AddPoints appends a points event and promotes the account through any level
// thresholds the new total crosses.
func (s *PointsService) AddPoints(ctx context.Context, accountID int64, delta int64, category domain.PointsCategory, relatedAccountID *int64) (*PointsResult, error) {
	if delta <= 0 {
		return nil, ErrInvalidDelta
	}
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	acct, err := s.accounts.LockForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	event := &domain.PointsEvent{
		AccountID:        accountID,
		Delta:            delta,
		Category:         category,
		RelatedAccountID: relatedAccountID,
	}
	if err := s.points.CreateEventWithTx(ctx, tx, event); err != nil {
		return nil, err
	}

	newLevel, newPoints := cascade(s.composer.Levels(), acct.Level, acct.LevelPoints+delta)
	if err := s.accounts.SetLevelWithTx(ctx, tx, accountID, newLevel, newPoints); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, accountID)
	return &PointsResult{
		NewLevel:  newLevel,
		NewPoints: newPoints,
		LeveledUp: newLevel > acct.Level,
	}, nil
}

// DeductPoints removes points without ever demoting the account. Asking for
// more than the balance fails and leaves state unchanged.
func (s *PointsService) DeductPoints(ctx context.Context, accountID int64, delta int64, category domain.PointsCategory, relatedAccountID *int64) (*PointsResult, error) {
	if delta <= 0 {
		return nil, ErrInvalidDelta
	}
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	acct, err := s.accounts.LockForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if delta > acct.LevelPoints {
		return nil, ErrInsufficientPoints
	}

	event := &domain.PointsEvent{
		AccountID:        accountID,
		Delta:            -delta,
		Category:         category,
		RelatedAccountID: relatedAccountID,
	}
	if err := s.points.CreateEventWithTx(ctx, tx, event); err != nil {
		return nil, err
	}

	newPoints := acct.LevelPoints - delta
	if err := s.accounts.SetLevelWithTx(ctx, tx, accountID, acct.Level, newPoints); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &PointsResult{
		NewLevel:  acct.Level,
		NewPoints: newPoints,
		LeveledUp: false,
	}, nil
}

// Events returns recent point events for an account
func (s *PointsService) Events(ctx context.Context, accountID int64, limit int) ([]*domain.PointsEvent, error) {
	return s.points.GetEventsByAccount(ctx, accountID, limit)
}
