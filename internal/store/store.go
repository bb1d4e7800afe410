// Package store persists per-user saved jobs and the latest search results.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimezsa/jobsearch/internal/config"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrNoUser = errors.New("user email is required")

// SavedStore keeps one saved-jobs list per user. Last writer wins.
type SavedStore interface {
	Load(ctx context.Context, user string) (models.SavedJobs, error)
	Save(ctx context.Context, user string, jobs []models.Job) (models.SavedJobs, error)
	Close() error
}

// Results is one completed search.
type Results struct {
	SearchID  string           `json:"search_id"`
	Query     string           `json:"search_query"`
	Location  string           `json:"location"`
	Jobs      []map[string]any `json:"jobs"`
	CreatedAt time.Time        `json:"created_at"`
}

// ResultStore holds the latest search results.
type ResultStore interface {
	Put(ctx context.Context, results Results) error
	Latest(ctx context.Context) (Results, bool, error)
	// Purge drops results created before cutoff and reports whether any were removed.
	Purge(ctx context.Context, cutoff time.Time) (bool, error)
	Close() error
}

// OpenSaved builds the saved-jobs store named by cfg.SavedStore.
func OpenSaved(ctx context.Context, cfg config.Config) (SavedStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.SavedStore)) {
	case "", "file":
		dir, err := cfg.SavedDir()
		if err != nil {
			return nil, err
		}
		return NewFileStore(dir), nil
	case "redis":
		rdb, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(rdb), nil
	case "postgres":
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown saved_store %q", cfg.SavedStore)
	}
}

// OpenResults builds the result store named by cfg.ResultStore.
func OpenResults(ctx context.Context, cfg config.Config) (ResultStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ResultStore)) {
	case "", "memory":
		return NewMemoryResults(), nil
	case "redis":
		rdb, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisResults(rdb), nil
	default:
		return nil, fmt.Errorf("unknown result_store %q", cfg.ResultStore)
	}
}

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("redis_url is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database_url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

func savedJobs(user string, jobs []models.Job, updated time.Time) models.SavedJobs {
	if jobs == nil {
		jobs = []models.Job{}
	}
	return models.SavedJobs{Jobs: jobs, TotalJobs: len(jobs), UserEmail: user, UpdatedAt: updated}
}

func normalizeUser(user string) (string, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return "", ErrNoUser
	}
	return user, nil
}
