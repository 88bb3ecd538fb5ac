package store

import (
	"context"
	"errors"
	"testing"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisJobStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisJobStore(client)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func jobStores(t *testing.T) map[string]JobStore {
	redisStore, _ := newRedisStore(t)
	return map[string]JobStore{
		"memory": NewMemoryJobStore(),
		"redis":  redisStore,
	}
}

func TestJobStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range jobStores(t) {
		t.Run(name, func(t *testing.T) {
			job, err := s.CreateJob(ctx, common.JobKindIngredients, 42)
			require.NoError(t, err)
			assert.Equal(t, common.JobStatusRunning, job.Status)
			assert.Nil(t, job.Payload)
			assert.Nil(t, job.EndTime)

			got, err := s.GetJob(ctx, common.JobKindIngredients, job.ID)
			require.NoError(t, err)
			assert.Equal(t, job.ID, got.ID)
			assert.Equal(t, int64(42), got.RecipeID)

			done, err := s.CompleteJob(ctx, common.JobKindIngredients, job.ID, `{"ingredients":[]}`)
			require.NoError(t, err)
			assert.Equal(t, common.JobStatusCompleted, done.Status)
			require.NotNil(t, done.Payload)
			require.NotNil(t, done.EndTime)

			got, err = s.GetJob(ctx, common.JobKindIngredients, job.ID)
			require.NoError(t, err)
			assert.Equal(t, common.JobStatusCompleted, got.Status)
			assert.Equal(t, `{"ingredients":[]}`, got.PayloadString())
		})
	}
}

func TestJobStore_TerminalIsImmutable(t *testing.T) {
	ctx := context.Background()
	for name, s := range jobStores(t) {
		t.Run(name, func(t *testing.T) {
			job, err := s.CreateJob(ctx, common.JobKindRecipe, 1)
			require.NoError(t, err)

			_, err = s.FailJob(ctx, common.JobKindRecipe, job.ID)
			require.NoError(t, err)

			_, err = s.CompleteJob(ctx, common.JobKindRecipe, job.ID, "{}")
			assert.True(t, errors.Is(err, ErrJobFinished))

			got, err := s.GetJob(ctx, common.JobKindRecipe, job.ID)
			require.NoError(t, err)
			assert.Equal(t, common.JobStatusFailed, got.Status)
			assert.Nil(t, got.Payload)
		})
	}
}

func TestJobStore_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range jobStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetJob(ctx, common.JobKindIngredients, 999)
			assert.True(t, errors.Is(err, ErrJobNotFound))

			_, err = s.FailJob(ctx, common.JobKindIngredients, 999)
			assert.True(t, errors.Is(err, ErrJobNotFound))

			latest, err := s.LatestJob(ctx, common.JobKindIngredients, 5)
			require.NoError(t, err)
			assert.Nil(t, latest)
		})
	}
}

func TestJobStore_LatestPerKindAndRecipe(t *testing.T) {
	ctx := context.Background()
	for name, s := range jobStores(t) {
		t.Run(name, func(t *testing.T) {
			first, _ := s.CreateJob(ctx, common.JobKindRecipe, 7)
			second, _ := s.CreateJob(ctx, common.JobKindRecipe, 7)
			_, _ = s.CreateJob(ctx, common.JobKindRecipe, 8)
			ing, _ := s.CreateJob(ctx, common.JobKindIngredients, 7)

			latest, err := s.LatestJob(ctx, common.JobKindRecipe, 7)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, second.ID, latest.ID)
			assert.NotEqual(t, first.ID, latest.ID)

			latestIng, err := s.LatestJob(ctx, common.JobKindIngredients, 7)
			require.NoError(t, err)
			require.NotNil(t, latestIng)
			assert.Equal(t, ing.ID, latestIng.ID)

			require.NoError(t, s.DeleteRecipeJobs(ctx, 7))
			latest, err = s.LatestJob(ctx, common.JobKindRecipe, 7)
			require.NoError(t, err)
			assert.Nil(t, latest)

			other, err := s.LatestJob(ctx, common.JobKindRecipe, 8)
			require.NoError(t, err)
			assert.NotNil(t, other)
		})
	}
}

func TestNewJobStore(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := &config.Config{}
	cfg.Store.Driver = "redis"
	cfg.Store.RedisAddr = mr.Addr()
	s, err := NewJobStore(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
	_, ok := s.(*RedisJobStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	cfg.Store.Driver = "memory"
	s, err = NewJobStore(ctx, cfg)
	require.NoError(t, err)
	_, ok = s.(*MemoryJobStore)
	assert.True(t, ok)

	cfg.Store.Driver = "etcd"
	_, err = NewJobStore(ctx, cfg)
	assert.Error(t, err)
}

func TestRedisJobStore_KeysLayout(t *testing.T) {
	s, mr := newRedisStore(t)
	job, err := s.CreateJob(context.Background(), common.JobKindIngredients, 3)
	require.NoError(t, err)

	assert.True(t, mr.Exists(jobKey(common.JobKindIngredients, job.ID)))
	latest, err := mr.Get(latestKey(common.JobKindIngredients, 3))
	require.NoError(t, err)
	assert.Equal(t, "1", latest)
}
