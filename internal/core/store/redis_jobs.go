package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recipe-suggester/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "recipe-suggester"
	maxTxAttempts = 5
)

// RedisJobStore Redis 任務儲存；每個任務以 JSON 存放，狀態變更使用 WATCH 交易
type RedisJobStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisJobStore 創建 Redis 任務儲存
func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func jobKey(kind common.JobKind, id int64) string {
	return fmt.Sprintf("%s:jobs:%s:%d", keyPrefix, kind, id)
}

func seqKey(kind common.JobKind) string {
	return fmt.Sprintf("%s:jobs:%s:seq", keyPrefix, kind)
}

func latestKey(kind common.JobKind, recipeID int64) string {
	return fmt.Sprintf("%s:jobs:%s:recipe:%d", keyPrefix, kind, recipeID)
}

func recipeJobsKey(recipeID int64) string {
	return fmt.Sprintf("%s:recipes:%d:jobs", keyPrefix, recipeID)
}

func (s *RedisJobStore) CreateJob(ctx context.Context, kind common.JobKind, recipeID int64) (common.Job, error) {
	id, err := s.client.Incr(ctx, seqKey(kind)).Result()
	if err != nil {
		return common.Job{}, fmt.Errorf("allocate job id: %w", err)
	}

	job := common.Job{
		ID:        id,
		RecipeID:  recipeID,
		Kind:      kind,
		Status:    common.JobStatusRunning,
		StartTime: s.now(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return common.Job{}, err
	}

	key := jobKey(kind, id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.Set(ctx, latestKey(kind, recipeID), id, 0)
		pipe.SAdd(ctx, recipeJobsKey(recipeID), key)
		return nil
	})
	if err != nil {
		return common.Job{}, fmt.Errorf("save job: %w", err)
	}
	return job, nil
}

func (s *RedisJobStore) GetJob(ctx context.Context, kind common.JobKind, jobID int64) (common.Job, error) {
	data, err := s.client.Get(ctx, jobKey(kind, jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return common.Job{}, ErrJobNotFound
	}
	if err != nil {
		return common.Job{}, fmt.Errorf("load job: %w", err)
	}
	return decodeJob(data)
}

func decodeJob(data []byte) (common.Job, error) {
	var job common.Job
	if err := common.ParseJSONBytes(data, &job); err != nil {
		return common.Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

func (s *RedisJobStore) CompleteJob(ctx context.Context, kind common.JobKind, jobID int64, payload string) (common.Job, error) {
	return s.finish(ctx, kind, jobID, common.JobStatusCompleted, &payload)
}

func (s *RedisJobStore) FailJob(ctx context.Context, kind common.JobKind, jobID int64) (common.Job, error) {
	return s.finish(ctx, kind, jobID, common.JobStatusFailed, nil)
}

func (s *RedisJobStore) finish(ctx context.Context, kind common.JobKind, jobID int64, status common.JobStatus, payload *string) (common.Job, error) {
	key := jobKey(kind, jobID)
	var result common.Job

	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}
		job, err := decodeJob(data)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			result = job
			return ErrJobFinished
		}

		end := s.now()
		job.Status = status
		job.Payload = payload
		job.EndTime = &end
		updated, err := json.Marshal(job)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		if err == nil {
			result = job
		}
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			common.LogDebug("任務更新衝突，重試", zap.String("key", key), zap.Int("attempt", attempt+1))
			continue
		}
		return result, err
	}
	return common.Job{}, fmt.Errorf("update job %s: too many conflicts", key)
}

func (s *RedisJobStore) LatestJob(ctx context.Context, kind common.JobKind, recipeID int64) (*common.Job, error) {
	id, err := s.client.Get(ctx, latestKey(kind, recipeID)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest job: %w", err)
	}
	job, err := s.GetJob(ctx, kind, id)
	if errors.Is(err, ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *RedisJobStore) DeleteRecipeJobs(ctx context.Context, recipeID int64) error {
	setKey := recipeJobsKey(recipeID)
	keys, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list recipe jobs: %w", err)
	}
	keys = append(keys,
		setKey,
		latestKey(common.JobKindIngredients, recipeID),
		latestKey(common.JobKindRecipe, recipeID),
	)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete recipe jobs: %w", err)
	}
	return nil
}

func (s *RedisJobStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisJobStore) Close() error {
	return s.client.Close()
}

// Client 共用連線給回應快取
func (s *RedisJobStore) Client() *redis.Client {
	return s.client
}
