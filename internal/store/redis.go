package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	savedKeyPrefix = "jobsearch:saved:"
	resultsKey     = "jobsearch:results:latest"
)

// redisKV is the part of *redis.Client the stores use.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisStore keeps each user's saved jobs as one JSON value.
type RedisStore struct {
	rdb redisKV
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context, user string) (models.SavedJobs, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return models.SavedJobs{}, err
	}
	raw, err := s.rdb.Get(ctx, savedKeyPrefix+user).Bytes()
	if errors.Is(err, redis.Nil) {
		return savedJobs(user, nil, time.Time{}), nil
	}
	if err != nil {
		return models.SavedJobs{}, fmt.Errorf("redis get saved jobs: %w", err)
	}
	var doc models.SavedJobs
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.SavedJobs{}, fmt.Errorf("decode saved jobs: %w", err)
	}
	return savedJobs(user, doc.Jobs, doc.UpdatedAt), nil
}

func (s *RedisStore) Save(ctx context.Context, user string, jobs []models.Job) (models.SavedJobs, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return models.SavedJobs{}, err
	}
	doc := savedJobs(user, jobs, s.now().UTC())
	raw, err := json.Marshal(doc)
	if err != nil {
		return models.SavedJobs{}, err
	}
	if err := s.rdb.Set(ctx, savedKeyPrefix+user, raw, 0).Err(); err != nil {
		return models.SavedJobs{}, fmt.Errorf("redis set saved jobs: %w", err)
	}
	return doc, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// RedisResults keeps the latest results under a single key.
type RedisResults struct {
	rdb redisKV
}

func NewRedisResults(rdb *redis.Client) *RedisResults {
	return &RedisResults{rdb: rdb}
}

func (s *RedisResults) Put(ctx context.Context, results Results) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, resultsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set results: %w", err)
	}
	return nil
}

func (s *RedisResults) Latest(ctx context.Context) (Results, bool, error) {
	raw, err := s.rdb.Get(ctx, resultsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Results{}, false, nil
	}
	if err != nil {
		return Results{}, false, fmt.Errorf("redis get results: %w", err)
	}
	var results Results
	if err := json.Unmarshal(raw, &results); err != nil {
		return Results{}, false, fmt.Errorf("decode results: %w", err)
	}
	return results, true, nil
}

func (s *RedisResults) Purge(ctx context.Context, cutoff time.Time) (bool, error) {
	results, ok, err := s.Latest(ctx)
	if err != nil || !ok {
		return false, err
	}
	if !results.CreatedAt.Before(cutoff) {
		return false, nil
	}
	if err := s.rdb.Del(ctx, resultsKey).Err(); err != nil {
		return false, fmt.Errorf("redis del results: %w", err)
	}
	return true, nil
}

func (s *RedisResults) Close() error {
	return s.rdb.Close()
}
