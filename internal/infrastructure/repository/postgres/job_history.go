package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
)

// JobHistoryRepository caches submissions made through this service so the
// history listing survives upstream outages.
type JobHistoryRepository struct {
	db *sql.DB
}

func NewJobHistoryRepository(db *sql.DB) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *JobHistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS interpretation_jobs (
	job_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	progress INT NOT NULL DEFAULT 0,
	parameters JSONB,
	summary TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interpretation_jobs_created_at ON interpretation_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobHistoryRepository) RecordSubmission(ctx context.Context, rec domain.JobSummary) error {
	var paramsJSON []byte
	if rec.Parameters != nil {
		var err error
		paramsJSON, err = json.Marshal(rec.Parameters)
		if err != nil {
			return fmt.Errorf("marshal parameters: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO interpretation_jobs (job_id, status, progress, parameters, summary, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (job_id) DO NOTHING
`, rec.JobID, string(rec.Status), rec.Progress, paramsJSON, rec.Summary, rec.Error, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobHistoryRepository) UpdateOutcome(ctx context.Context, jobID string, status domain.JobStatus, progress int, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE interpretation_jobs
SET status = $2, progress = $3, error_message = $4, updated_at = $5
WHERE job_id = $1
`, jobID, string(status), progress, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job not found: id=%s", jobID)
	}
	return nil
}

func (r *JobHistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.JobSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT job_id, status, progress, parameters, summary, error_message, created_at, updated_at
FROM interpretation_jobs
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.JobSummary, 0)
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

type jobScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row jobScanner) (domain.JobSummary, error) {
	var rec domain.JobSummary
	var status string
	var paramsJSON []byte
	var summary, errMessage sql.NullString
	err := row.Scan(
		&rec.JobID,
		&status,
		&rec.Progress,
		&paramsJSON,
		&summary,
		&errMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return domain.JobSummary{}, fmt.Errorf("scan job: %w", err)
	}
	rec.Status = domain.JobStatus(status)
	rec.Summary = summary.String
	rec.Error = errMessage.String
	if len(paramsJSON) > 0 {
		params := &domain.JobParameters{}
		if err := json.Unmarshal(paramsJSON, params); err != nil {
			return domain.JobSummary{}, fmt.Errorf("unmarshal parameters: %w", err)
		}
		rec.Parameters = params
	}
	return rec, nil
}
