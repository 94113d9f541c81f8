// Package tasks tracks generation tasks and runs the per-task pipeline.
package tasks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lectern-ai/lectern/internal/domain"
)

// ErrNotFound is returned when a task id is unknown.
var ErrNotFound = errors.New("task not found")

// Store persists task records for polling. Implementations must make
// Update atomic with respect to concurrent readers.
type Store interface {
	Create(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, id string, fn func(*domain.Task)) error
	List(ctx context.Context) ([]*domain.Task, error)
}

// MemoryStore is the default in-process task store.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*domain.Task)}
}

// Create stores a new task record.
func (s *MemoryStore) Create(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

// Get returns a copy of the task record.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *task
	return &clone, nil
}

// Update applies fn to the stored record under the write lock.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*domain.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	fn(task)
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns copies of all tasks, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		clone := *task
		tasks = append(tasks, &clone)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}
