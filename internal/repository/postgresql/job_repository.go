package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"video-generator-service/internal/entity"
	"video-generator-service/internal/repository"
)

// Schema is applied by EnsureSchema on startup.
const Schema = `
CREATE TABLE IF NOT EXISTS video_jobs (
	id               TEXT PRIMARY KEY,
	keyword          TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL,
	status           TEXT NOT NULL,
	progress         TEXT,
	video_url        TEXT,
	error            TEXT,
	error_kind       TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const uniqueViolation = "23505"

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	const q = `
INSERT INTO video_jobs (id, keyword, duration_minutes, status, progress)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at;
`
	err := r.pool.QueryRow(ctx, q, job.ID, job.Keyword, job.DurationMinutes, string(job.Status), job.Progress).
		Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*entity.Job, error) {
	const q = `
SELECT id, keyword, duration_minutes, status, progress, video_url, error, error_kind, created_at, updated_at
FROM video_jobs
WHERE id = $1;
`

	var (
		job        entity.Job
		statusText string
		createdAt  time.Time
		updatedAt  time.Time
	)

	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID,
		&job.Keyword,
		&job.DurationMinutes,
		&statusText,
		&job.Progress,  // NULL => nil
		&job.VideoURL,  // NULL => nil
		&job.Error,     // NULL => nil
		&job.ErrorKind, // NULL => nil
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	job.Status = entity.JobStatus(statusText)
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt

	return &job, nil
}

// Update locks the row, validates the transition and writes only the
// fields present in patch.
func (r *JobRepository) Update(ctx context.Context, id string, patch entity.JobPatch) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM video_jobs WHERE id=$1 FOR UPDATE;`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrNotFound
			}
			return err
		}

		from := entity.JobStatus(current)
		if from.Terminal() {
			return repository.ErrTerminal
		}
		var status *string
		if patch.Status != nil {
			if !from.CanTransition(*patch.Status) {
				return fmt.Errorf("invalid transition %s -> %s", from, *patch.Status)
			}
			s := string(*patch.Status)
			status = &s
		}

		const q = `
UPDATE video_jobs SET
	status     = COALESCE($2, status),
	progress   = COALESCE($3, progress),
	video_url  = COALESCE($4, video_url),
	error      = COALESCE($5, error),
	error_kind = COALESCE($6, error_kind),
	updated_at = now()
WHERE id = $1;
`
		_, err = tx.Exec(ctx, q, id, status, patch.Progress, patch.VideoURL, patch.Error, patch.ErrorKind)
		return err
	})
}
