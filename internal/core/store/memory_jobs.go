package store

import (
	"context"
	"sync"
	"time"

	"recipe-suggester/internal/pkg/common"
)

// MemoryJobStore 記憶體任務儲存
type MemoryJobStore struct {
	mu     sync.RWMutex
	nextID map[common.JobKind]int64
	jobs   map[common.JobKind]map[int64]common.Job
	now    func() time.Time
}

// NewMemoryJobStore 創建記憶體任務儲存
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		nextID: make(map[common.JobKind]int64),
		jobs: map[common.JobKind]map[int64]common.Job{
			common.JobKindIngredients: {},
			common.JobKindRecipe:      {},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryJobStore) CreateJob(ctx context.Context, kind common.JobKind, recipeID int64) (common.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID[kind]++
	job := common.Job{
		ID:        s.nextID[kind],
		RecipeID:  recipeID,
		Kind:      kind,
		Status:    common.JobStatusRunning,
		StartTime: s.now(),
	}
	s.jobs[kind][job.ID] = job
	return job, nil
}

func (s *MemoryJobStore) GetJob(ctx context.Context, kind common.JobKind, jobID int64) (common.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[kind][jobID]
	if !ok {
		return common.Job{}, ErrJobNotFound
	}
	return job, nil
}

func (s *MemoryJobStore) CompleteJob(ctx context.Context, kind common.JobKind, jobID int64, payload string) (common.Job, error) {
	return s.finish(kind, jobID, common.JobStatusCompleted, &payload)
}

func (s *MemoryJobStore) FailJob(ctx context.Context, kind common.JobKind, jobID int64) (common.Job, error) {
	return s.finish(kind, jobID, common.JobStatusFailed, nil)
}

func (s *MemoryJobStore) finish(kind common.JobKind, jobID int64, status common.JobStatus, payload *string) (common.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[kind][jobID]
	if !ok {
		return common.Job{}, ErrJobNotFound
	}
	if job.Status.Terminal() {
		return job, ErrJobFinished
	}
	end := s.now()
	job.Status = status
	job.Payload = payload
	job.EndTime = &end
	s.jobs[kind][jobID] = job
	return job, nil
}

func (s *MemoryJobStore) LatestJob(ctx context.Context, kind common.JobKind, recipeID int64) (*common.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *common.Job
	for _, job := range s.jobs[kind] {
		if job.RecipeID != recipeID {
			continue
		}
		if latest == nil || job.ID > latest.ID {
			j := job
			latest = &j
		}
	}
	return latest, nil
}

func (s *MemoryJobStore) DeleteRecipeJobs(ctx context.Context, recipeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, jobs := range s.jobs {
		for id, job := range jobs {
			if job.RecipeID == recipeID {
				delete(jobs, id)
			}
		}
	}
	return nil
}

func (s *MemoryJobStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryJobStore) Close() error {
	return nil
}
