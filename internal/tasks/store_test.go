package tasks

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/domain"
)

func newTask() *domain.Task {
	return &domain.Task{
		ID:          uuid.NewString(),
		Status:      domain.TaskStatusQueued,
		Progress:    "Queued",
		ChapterName: "KWC05",
		GroupName:   "GRUPG",
		UserName:    "alice",
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	task := newTask()

	require.NoError(t, store.Create(ctx, task))
	assert.False(t, task.CreatedAt.IsZero())

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusQueued, got.Status)

	require.NoError(t, store.Update(ctx, task.ID, func(t *domain.Task) {
		t.Status = domain.TaskStatusProcessing
		t.Progress = "Extracting chapter text"
	}))
	require.NoError(t, store.Update(ctx, task.ID, func(t *domain.Task) {
		t.Status = domain.TaskStatusCompleted
		t.Progress = "Completed"
		t.SlidesCount = 12
	}))

	got, err = store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, 12, got.SlidesCount)
	assert.True(t, got.Status.Terminal())
}

func TestMemoryStoreUnknownID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "no-such-task")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Update(ctx, "no-such-task", func(t *domain.Task) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	task := newTask()
	require.NoError(t, store.Create(ctx, task))

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	got.Status = domain.TaskStatusError

	again, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusQueued, again.Status)
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	task := newTask()
	require.NoError(t, store.Create(ctx, task))

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, task.ID, func(t *domain.Task) {
				t.SlidesCount++
			})
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, got.SlidesCount)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := newTask()
	require.NoError(t, store.Create(ctx, first))

	second := newTask()
	second.CreatedAt = first.CreatedAt.Add(1)
	require.NoError(t, store.Create(ctx, second))

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
}
