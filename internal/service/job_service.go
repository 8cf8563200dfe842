package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"video-generator-service/internal/entity"
	"video-generator-service/internal/repository"
	"video-generator-service/internal/stage"
)

const (
	DefaultDurationMinutes = 12
	StartingProgress       = "starting"

	idLength      = 8
	maxIDAttempts = 5
)

// JobRepository is the store port (memory.JobRepository, postgresql.JobRepository).
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, id string) (*entity.Job, error)
	Update(ctx context.Context, id string, patch entity.JobPatch) error
}

// JobQueue is the producer half of Queue.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// VideoLocator resolves where a job's final video lives (workspace.Manager).
type VideoLocator interface {
	VideoPath(jobID string) (string, error)
}

type JobService struct {
	repo   JobRepository
	queue  JobQueue
	videos VideoLocator
	newID  func() string
}

func NewJobService(repo JobRepository, queue JobQueue, videos VideoLocator) *JobService {
	return &JobService{
		repo:   repo,
		queue:  queue,
		videos: videos,
		newID:  newShortID,
	}
}

// WithIDGenerator overrides job id allocation; intended for tests.
func (s *JobService) WithIDGenerator(fn func() string) *JobService {
	s.newID = fn
	return s
}

type SubmitRequest struct {
	Keyword         string
	DurationMinutes int
}

// Submit records a new processing job and schedules it. It returns as soon
// as the job is queued.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (*entity.Job, error) {
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = DefaultDurationMinutes
	}

	progress := StartingProgress
	job := &entity.Job{
		Keyword:         req.Keyword,
		DurationMinutes: req.DurationMinutes,
		Status:          entity.StatusProcessing,
		Progress:        &progress,
	}

	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		job.ID = s.newID()
		err = s.repo.Create(ctx, job)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		msg := fmt.Sprintf("enqueue: %v", err)
		kind := string(stage.KindInternal)
		failed := entity.StatusFailed
		enqErr := fmt.Errorf("enqueue job %s: %w", job.ID, err)
		if upErr := s.repo.Update(ctx, job.ID, entity.JobPatch{Status: &failed, Error: &msg, ErrorKind: &kind}); upErr != nil {
			return nil, errors.Join(enqErr, fmt.Errorf("mark job %s failed: %w", job.ID, upErr))
		}
		return nil, enqErr
	}

	return job, nil
}

// Query never fails: unknown ids yield a synthetic not_found record.
func (s *JobService) Query(ctx context.Context, id string) *entity.Job {
	j, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return &entity.Job{ID: id, Status: entity.StatusNotFound}
	}
	return j
}

// Fetch returns the video path only for completed jobs whose file exists.
func (s *JobService) Fetch(ctx context.Context, id string) (string, bool) {
	j, err := s.repo.GetByID(ctx, id)
	if err != nil || j.Status != entity.StatusCompleted {
		return "", false
	}
	path, err := s.videos.VideoPath(id)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

func newShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}
