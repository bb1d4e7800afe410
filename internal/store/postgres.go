package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimezsa/jobsearch/internal/models"
)

const savedJobsSchema = `
CREATE TABLE IF NOT EXISTS saved_jobs (
	user_email TEXT PRIMARY KEY,
	jobs       JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// pgxPool is the part of *pgxpool.Pool the store uses.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps saved jobs in the saved_jobs table, one row per user.
type PostgresStore struct {
	pool pgxPool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, savedJobsSchema); err != nil {
		return fmt.Errorf("create saved_jobs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, user string) (models.SavedJobs, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return models.SavedJobs{}, err
	}

	var (
		raw     []byte
		updated time.Time
	)
	err = s.pool.QueryRow(ctx,
		`SELECT jobs, updated_at FROM saved_jobs WHERE user_email = $1`, user,
	).Scan(&raw, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return savedJobs(user, nil, time.Time{}), nil
	}
	if err != nil {
		return models.SavedJobs{}, fmt.Errorf("load saved jobs: %w", err)
	}

	var jobs []models.Job
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return models.SavedJobs{}, fmt.Errorf("decode saved jobs: %w", err)
	}
	return savedJobs(user, jobs, updated), nil
}

func (s *PostgresStore) Save(ctx context.Context, user string, jobs []models.Job) (models.SavedJobs, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return models.SavedJobs{}, err
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	raw, err := json.Marshal(jobs)
	if err != nil {
		return models.SavedJobs{}, err
	}

	var updated time.Time
	err = s.pool.QueryRow(ctx,
		`INSERT INTO saved_jobs (user_email, jobs, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_email) DO UPDATE SET jobs = EXCLUDED.jobs, updated_at = EXCLUDED.updated_at
		 RETURNING updated_at`,
		user, raw,
	).Scan(&updated)
	if err != nil {
		return models.SavedJobs{}, fmt.Errorf("save saved jobs: %w", err)
	}
	return savedJobs(user, jobs, updated), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
