package recipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-suggester/internal/core/ai/queue"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"
	"recipe-suggester/internal/telemetry"

	"go.uber.org/zap"
)

// Enqueuer 背景任務隊列
type Enqueuer interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

// Runner 將辨識與生成任務交給隊列執行，並寫回任務結果
type Runner struct {
	jobs            store.JobStore
	queue           Enqueuer
	detector        Detector
	generator       *Generator
	detectionDelay  time.Duration
	generationDelay time.Duration
}

// NewRunner 創建任務執行器
func NewRunner(cfg *config.Config, jobs store.JobStore, q Enqueuer, detector Detector, generator *Generator) *Runner {
	return &Runner{
		jobs:            jobs,
		queue:           q,
		detector:        detector,
		generator:       generator,
		detectionDelay:  cfg.Jobs.DetectionDelay,
		generationDelay: cfg.Jobs.GenerationDelay,
	}
}

// SubmitDetection 排入食材辨識
func (r *Runner) SubmitDetection(ctx context.Context, job common.Job, imagePath string) error {
	return r.submit(ctx, job, r.detectionDelay, func(ctx context.Context) (string, error) {
		detected, err := r.detector.Detect(ctx, imagePath)
		if err != nil {
			return "", err
		}
		return common.ToJSON(detected)
	})
}

// SubmitGeneration 排入食譜生成
func (r *Runner) SubmitGeneration(ctx context.Context, job common.Job, ingredients []string) error {
	return r.submit(ctx, job, r.generationDelay, func(ctx context.Context) (string, error) {
		recipe, err := r.generator.Generate(ctx, ingredients)
		if err != nil {
			return "", err
		}
		return common.ToJSON(recipe)
	})
}

// submit 排入失敗時直接把任務標記為 failed
func (r *Runner) submit(ctx context.Context, job common.Job, delay time.Duration, work func(context.Context) (string, error)) error {
	task := queue.Task{
		Name: fmt.Sprintf("%s:%d", job.Kind, job.ID),
		Run: func(ctx context.Context) error {
			return r.process(ctx, job, delay, work)
		},
	}
	if err := r.queue.Enqueue(ctx, task); err != nil {
		r.fail(context.WithoutCancel(ctx), job, err)
		return err
	}
	telemetry.JobsCreated.WithLabelValues(string(job.Kind)).Inc()
	return nil
}

func (r *Runner) process(ctx context.Context, job common.Job, delay time.Duration, work func(context.Context) (string, error)) error {
	telemetry.InFlightGauge.Inc()
	defer telemetry.InFlightGauge.Dec()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.fail(context.WithoutCancel(ctx), job, ctx.Err())
			return ctx.Err()
		case <-timer.C:
		}
	}

	payload, err := work(ctx)
	if err != nil {
		r.fail(context.WithoutCancel(ctx), job, err)
		return err
	}

	if _, err := r.jobs.CompleteJob(ctx, job.Kind, job.ID, payload); err != nil {
		// 寫回失敗時改標記為 failed
		if !errors.Is(err, store.ErrJobFinished) {
			r.fail(context.WithoutCancel(ctx), job, err)
		}
		return fmt.Errorf("complete job %d: %w", job.ID, err)
	}
	telemetry.JobsCompleted.WithLabelValues(string(job.Kind)).Inc()
	common.LogJobTransition(job.Kind, job.ID, string(common.JobStatusRunning), string(common.JobStatusCompleted))
	return nil
}

func (r *Runner) fail(ctx context.Context, job common.Job, cause error) {
	if _, err := r.jobs.FailJob(ctx, job.Kind, job.ID); err != nil {
		common.LogError("標記任務失敗時發生錯誤", zap.Int64("job_id", job.ID), zap.Error(err))
		return
	}
	telemetry.JobsFailed.WithLabelValues(string(job.Kind)).Inc()
	common.LogJobTransition(job.Kind, job.ID, string(common.JobStatusRunning), string(common.JobStatusFailed))
	common.LogWarn("任務執行失敗", zap.String("kind", string(job.Kind)), zap.Int64("job_id", job.ID), zap.Error(cause))
}
