package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/domain"
)

// keyPrefix namespaces task keys in a shared Redis instance.
const keyPrefix = "lectern:task:"

// RedisStore keeps task records in Redis so they survive process
// restarts. Records expire after the configured retention; finished
// tasks age out together with their output files.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig, retention time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if retention <= 0 {
		retention = 24 * time.Hour
	}

	return &RedisStore{client: client, retention: retention}, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Create stores a new task record.
func (s *RedisStore) Create(ctx context.Context, task *domain.Task) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	return s.put(ctx, task)
}

// Get returns the task record.
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get task: %w", err)
	}

	task := &domain.Task{}
	if err := json.Unmarshal(data, task); err != nil {
		return nil, fmt.Errorf("decode task record: %w", err)
	}
	return task, nil
}

// Update applies fn to the stored record. Each task has a single
// writer (its worker goroutine), so read-modify-write is safe here.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*domain.Task)) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	fn(task)
	task.UpdatedAt = time.Now().UTC()
	return s.put(ctx, task)
}

// List returns all live task records, newest first.
func (s *RedisStore) List(ctx context.Context) ([]*domain.Task, error) {
	var tasks []*domain.Task

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("redis get task: %w", err)
		}

		task := &domain.Task{}
		if err := json.Unmarshal(data, task); err != nil {
			return nil, fmt.Errorf("decode task record: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan tasks: %w", err)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *RedisStore) put(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+task.ID, data, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set task: %w", err)
	}
	return nil
}
