package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"video-generator-service/internal/entity"
	"video-generator-service/internal/repository"
)

// JobRepository keeps job records for the lifetime of the process.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*entity.Job
	now  func() time.Time
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: map[string]*entity.Job{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return repository.ErrDuplicate
	}
	stored := job.Clone()
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.jobs[job.ID] = stored

	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*entity.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return j.Clone(), nil
}

func (r *JobRepository) Update(ctx context.Context, id string, patch entity.JobPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if j.Status.Terminal() {
		return repository.ErrTerminal
	}
	if patch.Status != nil && !j.Status.CanTransition(*patch.Status) {
		return fmt.Errorf("invalid transition %s -> %s", j.Status, *patch.Status)
	}
	patch.Apply(j, r.now())
	return nil
}
