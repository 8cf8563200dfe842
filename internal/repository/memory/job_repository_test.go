package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"video-generator-service/internal/entity"
	"video-generator-service/internal/repository"
)

func strp(s string) *string { return &s }

func statusp(s entity.JobStatus) *entity.JobStatus { return &s }

func TestJobRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()

	job := &entity.Job{ID: "abc12345", Status: entity.StatusProcessing, Progress: strp("starting")}
	if err := r.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.CreatedAt.IsZero() {
		t.Fatalf("expected created_at set on caller's record")
	}

	got, err := r.GetByID(ctx, "abc12345")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != entity.StatusProcessing || *got.Progress != "starting" {
		t.Fatalf("unexpected record %+v", got)
	}

	// mutating the returned copy must not leak into the store
	*got.Progress = "tampered"
	again, _ := r.GetByID(ctx, "abc12345")
	if *again.Progress != "starting" {
		t.Fatalf("store shares memory with readers")
	}
}

func TestJobRepository_DuplicateAndNotFound(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()

	if err := r.Create(ctx, &entity.Job{ID: "x", Status: entity.StatusProcessing}); err != nil {
		t.Fatal(err)
	}
	if err := r.Create(ctx, &entity.Job{ID: "x", Status: entity.StatusProcessing}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := r.GetByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := r.Update(ctx, "missing", entity.JobPatch{}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestJobRepository_TerminalRecordIsFrozen(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()
	_ = r.Create(ctx, &entity.Job{ID: "j", Status: entity.StatusProcessing})

	err := r.Update(ctx, "j", entity.JobPatch{
		Status:   statusp(entity.StatusCompleted),
		VideoURL: strp("/download/j"),
		Progress: strp("done"),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	err = r.Update(ctx, "j", entity.JobPatch{Status: statusp(entity.StatusProcessing)})
	if !errors.Is(err, repository.ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	got, _ := r.GetByID(ctx, "j")
	if got.Status != entity.StatusCompleted || got.Error != nil {
		t.Fatalf("terminal record changed: %+v", got)
	}
}

func TestJobRepository_RejectsBackwardTransition(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()
	_ = r.Create(ctx, &entity.Job{ID: "j", Status: entity.StatusProcessing})

	if err := r.Update(ctx, "j", entity.JobPatch{Status: statusp(entity.StatusPending)}); err == nil {
		t.Fatal("expected processing -> pending to be rejected")
	}
}

func TestJobRepository_ConcurrentJobsAreIndependent(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		_ = r.Create(ctx, &entity.Job{ID: id, Status: entity.StatusProcessing})
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = r.Update(ctx, id, entity.JobPatch{Progress: strp(id)})
				_, _ = r.GetByID(ctx, id)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		got, _ := r.GetByID(ctx, id)
		if got.Progress == nil || *got.Progress != id {
			t.Fatalf("job %s: unexpected progress %v", id, got.Progress)
		}
	}
}
