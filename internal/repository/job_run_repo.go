package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// JobRun is the per-run audit row for batch jobs
type JobRun struct {
	RunID      string          `json:"run_id"`
	Job        string          `json:"job"`
	WindowEnd  time.Time       `json:"window_end"`
	Processed  int             `json:"processed"`
	Skipped    int             `json:"skipped"`
	Credited   decimal.Decimal `json:"credited"`
	DurationMS int64           `json:"duration_ms"`
}

type JobRunRepository struct {
	db *pgxpool.Pool
}

func NewJobRunRepository(db *pgxpool.Pool) *JobRunRepository {
	return &JobRunRepository{db: db}
}

func (r *JobRunRepository) Record(ctx context.Context, run *JobRun) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO job_runs (run_id, job, window_end, processed, skipped, credited, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
		run.RunID, run.Job, run.WindowEnd, run.Processed, run.Skipped, run.Credited.String(), run.DurationMS)
	return err
}

// LastRun returns the most recent run time for a job, zero time if none
func (r *JobRunRepository) LastRun(ctx context.Context, job string) (time.Time, error) {
	var t *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT MAX(created_at) FROM job_runs WHERE job = $1`, job).Scan(&t)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}
