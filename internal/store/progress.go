// Package store persists pipeline state in Redis: render jobs, projects and
// dead-lettered tasks. Records are stored as JSON values with a 24h TTL,
// matching the retention of the task queue.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keylia/api/internal/model"
)

const recordTTL = 24 * time.Hour

var (
	ErrJobNotFound = errors.New("render job not found")
	ErrJobTerminal = errors.New("render job already in a terminal state")
)

// ProgressStore tracks render jobs through the pipeline.
type ProgressStore struct {
	redis *redis.Client
}

func NewProgressStore(redisClient *redis.Client) *ProgressStore {
	return &ProgressStore{redis: redisClient}
}

func jobKey(id string) string { return fmt.Sprintf("renderjob:%s", id) }

// CreateJob persists a fresh job record.
func (s *ProgressStore) CreateJob(ctx context.Context, job *model.RenderJob) error {
	return s.save(ctx, job)
}

// GetJob loads a job by id.
func (s *ProgressStore) GetJob(ctx context.Context, jobID string) (*model.RenderJob, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.RenderJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkStarted transitions a queued job to processing and records the worker.
func (s *ProgressStore) MarkStarted(ctx context.Context, jobID, workerID string) error {
	return s.mutate(ctx, jobID, func(job *model.RenderJob) error {
		if job.Status.Terminal() {
			return ErrJobTerminal
		}
		job.Status = model.RenderStatusProcessing
		job.WorkerID = workerID
		now := time.Now()
		job.StartedAt = &now
		advanceProgress(job, 5)
		return nil
	})
}

// UpdateProgress raises the job's progress percentage. Lower values are
// ignored so retries and out-of-order updates can never move the bar
// backwards.
func (s *ProgressStore) UpdateProgress(ctx context.Context, jobID string, percent int) error {
	return s.mutate(ctx, jobID, func(job *model.RenderJob) error {
		if job.Status.Terminal() {
			return ErrJobTerminal
		}
		advanceProgress(job, percent)
		return nil
	})
}

// UpdateStep records the status of a named pipeline step.
func (s *ProgressStore) UpdateStep(ctx context.Context, jobID string, step model.StepName, status model.StepStatus, details map[string]interface{}) error {
	return s.mutate(ctx, jobID, func(job *model.RenderJob) error {
		if job.Status.Terminal() {
			return ErrJobTerminal
		}
		sp := job.Step(step)
		if sp == nil {
			job.Steps = append(job.Steps, model.StepProgress{Name: step})
			sp = &job.Steps[len(job.Steps)-1]
		}
		sp.Status = status
		if details != nil {
			sp.Details = details
		}
		return nil
	})
}

// Complete marks a job finished with its output.
func (s *ProgressStore) Complete(ctx context.Context, jobID, outputURL string, fileSize int64) error {
	return s.mutate(ctx, jobID, func(job *model.RenderJob) error {
		if job.Status.Terminal() {
			return ErrJobTerminal
		}
		job.Status = model.RenderStatusCompleted
		job.ProgressPercent = 100
		job.OutputURL = outputURL
		job.OutputFileSize = fileSize
		now := time.Now()
		job.CompletedAt = &now
		return nil
	})
}

// Fail marks a job failed with a user-safe message and structured cause.
func (s *ProgressStore) Fail(ctx context.Context, jobID, message string, details *model.ErrorDetails) error {
	return s.mutate(ctx, jobID, func(job *model.RenderJob) error {
		if job.Status.Terminal() {
			return ErrJobTerminal
		}
		job.Status = model.RenderStatusFailed
		job.ErrorMessage = message
		job.ErrorDetails = details
		now := time.Now()
		job.CompletedAt = &now
		return nil
	})
}

// Cancel requests cooperative cancellation. The worker observes the status
// at its next checkpoint and stops.
func (s *ProgressStore) Cancel(ctx context.Context, jobID string) error {
	return s.mutate(ctx, jobID, func(job *model.RenderJob) error {
		if job.Status.Terminal() {
			return ErrJobTerminal
		}
		job.Status = model.RenderStatusCancelled
		now := time.Now()
		job.CompletedAt = &now
		return nil
	})
}

// IsCancelled reports whether the job was cancelled. Used by the worker at
// pipeline checkpoints.
func (s *ProgressStore) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	return job.Status == model.RenderStatusCancelled, nil
}

func (s *ProgressStore) mutate(ctx context.Context, jobID string, fn func(*model.RenderJob) error) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := fn(job); err != nil {
		return err
	}
	return s.save(ctx, job)
}

func (s *ProgressStore) save(ctx context.Context, job *model.RenderJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, recordTTL).Err()
}

// advanceProgress applies the monotonic guard and reports whether the value
// actually moved.
func advanceProgress(job *model.RenderJob, percent int) bool {
	if percent > 100 {
		percent = 100
	}
	if percent <= job.ProgressPercent {
		return false
	}
	job.ProgressPercent = percent
	return true
}
