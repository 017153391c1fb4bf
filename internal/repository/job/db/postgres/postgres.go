package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"image-jobs/internal/domain"
	"image-jobs/internal/repository/job"

	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

const uniqueViolation = "23505"

type JobsRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewJobsRepository(db *dbpg.DB, retries retry.Strategy) *JobsRepository {
	return &JobsRepository{
		db:      db,
		retries: retries,
	}
}

func (r *JobsRepository) Create(ctx context.Context, j *domain.Job) error {
	query := `
		INSERT INTO jobs (
			id, type, file_name, status, input_key,
			operations, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	operations, err := json.Marshal(j.Operations)
	if err != nil {
		return fmt.Errorf("failed to marshal operations: %w", err)
	}

	_, err = r.db.ExecWithRetry(ctx, r.retries, query,
		j.ID,
		j.Type,
		j.FileName,
		j.Status,
		j.InputKey,
		operations,
		j.CreatedAt,
		j.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return job.ErrDuplicateJob
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (r *JobsRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `
		SELECT id, type, file_name, status, input_key, result_key, error,
		       operations, created_at, updated_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}

	var (
		j           domain.Job
		resultKey   sql.NullString
		errMsg      sql.NullString
		operations  []byte
		completedAt sql.NullTime
	)
	err = row.Scan(
		&j.ID,
		&j.Type,
		&j.FileName,
		&j.Status,
		&j.InputKey,
		&resultKey,
		&errMsg,
		&operations,
		&j.CreatedAt,
		&j.UpdatedAt,
		&completedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, job.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	j.ResultKey = resultKey.String
	j.Error = errMsg.String
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	if len(operations) > 0 {
		if err := json.Unmarshal(operations, &j.Operations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal operations: %w", err)
		}
	}

	return &j, nil
}

func (r *JobsRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, domain.StatusProcessing, "", "")
}

func (r *JobsRepository) MarkCompleted(ctx context.Context, id, resultKey string) error {
	return r.transition(ctx, id, domain.StatusCompleted, resultKey, "")
}

func (r *JobsRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.transition(ctx, id, domain.StatusFailed, "", reason)
}

// transition moves the job to next only if its current status is a legal
// predecessor, so a terminal job can never be rewritten.
func (r *JobsRepository) transition(ctx context.Context, id string, next domain.JobStatus, resultKey, reason string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    result_key = NULLIF($2, ''),
		    error = NULLIF($3, ''),
		    updated_at = $4,
		    completed_at = CASE WHEN $5 THEN $4 ELSE completed_at END
		WHERE id = $6 AND status = ANY($7)
	`

	preds := next.Predecessors()
	from := make([]string, 0, len(preds))
	for _, p := range preds {
		from = append(from, string(p))
	}

	result, err := r.db.ExecWithRetry(ctx, r.retries, query,
		next,
		resultKey,
		reason,
		time.Now(),
		next.IsTerminal(),
		id,
		pq.Array(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", job.ErrInvalidTransition, current.Status, next)
	}

	return nil
}
