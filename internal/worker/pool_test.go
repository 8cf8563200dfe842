package worker_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"video-generator-service/internal/service"
	"video-generator-service/internal/worker"
)

type recordingProcessor struct {
	mu   sync.Mutex
	seen []string
	done chan struct{}
	want int
}

func (p *recordingProcessor) Process(ctx context.Context, jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, jobID)
	if len(p.seen) == p.want {
		close(p.done)
	}
	return nil
}

func TestPool_ProcessesQueuedJobsAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := service.NewMemoryQueue()
	proc := &recordingProcessor{done: make(chan struct{}), want: 3}
	pool := worker.NewPool(q, proc, 2, zerolog.Nop())

	stopped := make(chan error, 1)
	go func() { stopped <- pool.Run(ctx) }()

	for _, id := range []string{"a", "b", "c"} {
		_ = q.Enqueue(ctx, id)
	}

	select {
	case <-proc.done:
	case <-time.After(3 * time.Second):
		t.Fatal("jobs were not processed")
	}

	cancel()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("pool did not stop")
	}

	proc.mu.Lock()
	defer proc.mu.Unlock()
	sort.Strings(proc.seen)
	if len(proc.seen) != 3 || proc.seen[0] != "a" || proc.seen[2] != "c" {
		t.Fatalf("unexpected processed ids %v", proc.seen)
	}
}

// blockingProcessor holds every job until released, to observe concurrency.
type blockingProcessor struct {
	started chan string
	release chan struct{}
}

func (p *blockingProcessor) Process(ctx context.Context, jobID string) error {
	p.started <- jobID
	<-p.release
	return nil
}

func TestPool_RunsJobsConcurrently(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := service.NewMemoryQueue()
	proc := &blockingProcessor{started: make(chan string, 3), release: make(chan struct{})}
	pool := worker.NewPool(q, proc, 3, zerolog.Nop())
	go func() { _ = pool.Run(ctx) }()

	for _, id := range []string{"a", "b", "c"} {
		_ = q.Enqueue(ctx, id)
	}
	for i := 0; i < 3; i++ {
		select {
		case <-proc.started:
		case <-time.After(3 * time.Second):
			t.Fatalf("only %d of 3 jobs started concurrently", i)
		}
	}
	close(proc.release)
}

// ackingQueue records acknowledgements on top of the memory queue.
type ackingQueue struct {
	service.Queue
	mu    sync.Mutex
	acked []string
}

func (q *ackingQueue) Ack(ctx context.Context, jobID string) error {
	q.mu.Lock()
	q.acked = append(q.acked, jobID)
	q.mu.Unlock()
	return q.Queue.Ack(ctx, jobID)
}

type selectiveProcessor struct {
	done chan string
}

func (p *selectiveProcessor) Process(ctx context.Context, jobID string) error {
	defer func() { p.done <- jobID }()
	if jobID == "unreadable" {
		return fmt.Errorf("%w: connection reset", worker.ErrRecordUnavailable)
	}
	if jobID == "failed" {
		return fmt.Errorf("record write failed")
	}
	return nil
}

func TestPool_LeavesUnreadableJobsUnacked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &ackingQueue{Queue: service.NewMemoryQueue()}
	proc := &selectiveProcessor{done: make(chan string, 3)}
	pool := worker.NewPool(q, proc, 1, zerolog.Nop())

	stopped := make(chan struct{})
	go func() {
		_ = pool.Run(ctx)
		close(stopped)
	}()

	for _, id := range []string{"unreadable", "failed", "ok"} {
		_ = q.Enqueue(ctx, id)
	}
	for i := 0; i < 3; i++ {
		select {
		case <-proc.done:
		case <-time.After(3 * time.Second):
			t.Fatal("jobs were not processed")
		}
	}
	cancel()
	<-stopped

	q.mu.Lock()
	defer q.mu.Unlock()
	sort.Strings(q.acked)
	if len(q.acked) != 2 || q.acked[0] != "failed" || q.acked[1] != "ok" {
		t.Fatalf("expected only failed and ok to be acked, got %v", q.acked)
	}
}
