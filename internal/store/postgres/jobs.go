package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/kamala96/email-service/internal/models"
)

type SendJobStore struct {
	db *sql.DB
}

func NewSendJobStore(db *sql.DB) *SendJobStore {
	return &SendJobStore{db: db}
}

func (s *SendJobStore) EnqueueSendJob(ctx context.Context, jobType string, payload []byte, maxAttempts int) (*models.SendJob, error) {
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	job := &models.SendJob{}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO send_jobs (job_type, payload, max_attempts)
		 VALUES ($1, $2, $3)
		 RETURNING id, job_type, payload, status, attempts, max_attempts, available_at, locked_at, last_error, created_at, updated_at, done_at`,
		jobType, payload, maxAttempts,
	).Scan(
		&job.ID, &job.JobType, &job.Payload, &job.Status, &job.Attempts, &job.MaxAttempts,
		&job.AvailableAt, &job.LockedAt, &job.LastError, &job.CreatedAt, &job.UpdatedAt, &job.DoneAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SendJobStore) ClaimNextSendJob(ctx context.Context) (*models.SendJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	job := &models.SendJob{}
	err = tx.QueryRowContext(ctx,
		`WITH next_job AS (
			SELECT id
			FROM send_jobs
			WHERE status = 'queued'
			  AND available_at <= NOW()
			ORDER BY available_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE send_jobs j
		SET status = 'processing',
			attempts = j.attempts + 1,
			locked_at = NOW(),
			updated_at = NOW()
		FROM next_job
		WHERE j.id = next_job.id
		RETURNING j.id, j.job_type, j.payload, j.status, j.attempts, j.max_attempts, j.available_at, j.locked_at, j.last_error, j.created_at, j.updated_at, j.done_at`,
	).Scan(
		&job.ID, &job.JobType, &job.Payload, &job.Status, &job.Attempts, &job.MaxAttempts,
		&job.AvailableAt, &job.LockedAt, &job.LastError, &job.CreatedAt, &job.UpdatedAt, &job.DoneAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			if commitErr := tx.Commit(); commitErr != nil {
				return nil, commitErr
			}
			return nil, nil
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SendJobStore) MarkSendJobDone(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE send_jobs
		 SET status = 'done',
		     last_error = '',
		     done_at = NOW(),
		     locked_at = NULL,
		     updated_at = NOW()
		 WHERE id = $1`,
		jobID,
	)
	return err
}

func (s *SendJobStore) MarkSendJobRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE send_jobs
		 SET status = 'queued',
		     available_at = $2,
		     last_error = $3,
		     locked_at = NULL,
		     updated_at = NOW()
		 WHERE id = $1`,
		jobID, nextAvailableAt, lastError,
	)
	return err
}

func (s *SendJobStore) MarkSendJobFailed(ctx context.Context, jobID int64, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE send_jobs
		 SET status = 'failed',
		     last_error = $2,
		     done_at = NOW(),
		     locked_at = NULL,
		     updated_at = NOW()
		 WHERE id = $1`,
		jobID, lastError,
	)
	return err
}
