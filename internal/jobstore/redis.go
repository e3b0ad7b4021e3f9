package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/captioner/internal/config"
	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

const maxMutateRetries = 10

// RedisStore keeps jobs as JSON documents in Redis so several API replicas can share them
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.JobTTL), nil
}

// NewRedisStoreWithClient wraps an existing client. A zero ttl keeps jobs forever.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "captioner"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:job:%s", s.prefix, id)
}

// Create inserts a new job
func (s *RedisStore) Create(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, job.ID)
	}
	return nil
}

// Get retrieves a job
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Job, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Mutate applies fn inside an optimistic WATCH/MULTI transaction, retrying on conflicts
func (s *RedisStore) Mutate(ctx context.Context, id string, fn MutateFunc) (*models.Job, error) {
	key := s.key(id)
	var updated models.Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return fmt.Errorf("failed to get job: %w", err)
		}

		updated = models.Job{}
		if err := json.Unmarshal(data, &updated); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}
		if err := fn(&updated); err != nil {
			return err
		}
		updated.ID = id

		out, err := json.Marshal(&updated)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxMutateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return &updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to update job %s: too many concurrent writers", id)
}
