package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/captioner/internal/config"
	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	store, err := NewRedisStore(config.RedisConfig{
		Host: mr.Host(),
		Port: mr.Server().Addr().Port,
	})
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		mr.Close()
	})
	return store, mr
}

func backends(t *testing.T) map[string]Store {
	redisStore, _ := setupRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func newJob(id string) *models.Job {
	return models.NewJob(id, "/uploads/"+id+".mp4", "clip.mp4", models.RenderOptions{Mode: models.CaptionModeWord})
}

func TestStoreCreateAndGet(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newJob("job-1")))

			job, err := store.Get(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, "job-1", job.ID)
			assert.Equal(t, models.JobStatusQueued, job.Status)
			assert.Equal(t, models.JobStepUploaded, job.Step)
			assert.Equal(t, "clip.mp4", job.OriginalName)
			assert.Equal(t, models.CaptionModeWord, job.Config.Mode)
		})
	}
}

func TestStoreDuplicateID(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newJob("dup")))

			err := store.Create(ctx, newJob("dup"))
			assert.ErrorIs(t, err, ErrDuplicateID)
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.Mutate(ctx, "missing", func(j *models.Job) error { return nil })
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreMutateReadYourWrites(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newJob("job-1")))

			updated, err := store.Mutate(ctx, "job-1", func(j *models.Job) error { return j.StartTranscribing() })
			require.NoError(t, err)
			assert.Equal(t, models.JobStepTranscribing, updated.Step)

			job, err := store.Get(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusProcessing, job.Status)
			assert.Equal(t, models.JobStepTranscribing, job.Step)

			_, err = store.Mutate(ctx, "job-1", func(j *models.Job) error { return j.StartRendering() })
			require.NoError(t, err)
			_, err = store.Mutate(ctx, "job-1", func(j *models.Job) error { return j.Complete("/out/job-1.mp4") })
			require.NoError(t, err)

			job, err = store.Get(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusCompleted, job.Status)
			assert.Equal(t, "/out/job-1.mp4", job.URL)
		})
	}
}

func TestStoreMutateErrorDiscardsUpdate(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newJob("job-1")))

			boom := errors.New("boom")
			_, err := store.Mutate(ctx, "job-1", func(j *models.Job) error {
				j.Status = models.JobStatusFailed
				return boom
			})
			assert.ErrorIs(t, err, boom)

			job, err := store.Get(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusQueued, job.Status)
		})
	}
}

func TestStoreMutateCannotChangeID(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newJob("job-1")))

			_, err := store.Mutate(ctx, "job-1", func(j *models.Job) error {
				j.ID = "other"
				return nil
			})
			require.NoError(t, err)

			_, err = store.Get(ctx, "job-1")
			assert.NoError(t, err)
			_, err = store.Get(ctx, "other")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreConcurrentJobsAreIsolated(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, newJob("a")))
			require.NoError(t, store.Create(ctx, newJob("b")))

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = store.Mutate(ctx, "a", func(j *models.Job) error { return j.StartTranscribing() })
				_, _ = store.Mutate(ctx, "a", func(j *models.Job) error { return j.Fail(models.ErrorKindExternalTool, "a failed") })
			}()
			go func() {
				defer wg.Done()
				_, _ = store.Mutate(ctx, "b", func(j *models.Job) error { return j.StartTranscribing() })
				_, _ = store.Mutate(ctx, "b", func(j *models.Job) error { return j.StartRendering() })
				_, _ = store.Mutate(ctx, "b", func(j *models.Job) error { return j.Complete("/out/b.mp4") })
			}()
			wg.Wait()

			a, err := store.Get(ctx, "a")
			require.NoError(t, err)
			b, err := store.Get(ctx, "b")
			require.NoError(t, err)

			assert.Equal(t, models.JobStatusFailed, a.Status)
			assert.Equal(t, "a failed", a.Error)
			assert.Empty(t, a.URL)

			assert.Equal(t, models.JobStatusCompleted, b.Status)
			assert.Equal(t, "/out/b.mp4", b.URL)
			assert.Empty(t, b.Error)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := newJob("job-1")
	require.NoError(t, store.Create(ctx, job))
	job.Status = models.JobStatusFailed

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, got.Status)

	got.Status = models.JobStatusCompleted
	again, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, again.Status)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job-%d", i)
			assert.NoError(t, store.Create(ctx, newJob(id)))
			_, err := store.Mutate(ctx, id, func(j *models.Job) error { return j.StartTranscribing() })
			assert.NoError(t, err)
			_, err = store.Get(ctx, id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}

func TestRedisStoreKeyLayout(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "test", 0)
	defer store.Close()

	require.NoError(t, store.Create(context.Background(), newJob("job-1")))
	assert.True(t, mr.Exists("test:job:job-1"))
	assert.Equal(t, 0, int(mr.TTL("test:job:job-1")))
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
