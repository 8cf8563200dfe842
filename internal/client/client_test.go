package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"video-generator-service/internal/client"
	"video-generator-service/internal/entity"
	"video-generator-service/internal/repository/memory"
	"video-generator-service/internal/service"
	httptransport "video-generator-service/internal/transport/http"
	"video-generator-service/internal/workspace"
)

type nopQueue struct{}

func (nopQueue) Enqueue(ctx context.Context, jobID string) error { return nil }

// newServer runs the real router over an in-memory store.
func newServer(t *testing.T) (*httptest.Server, *memory.JobRepository) {
	t.Helper()
	repo := memory.NewJobRepository()
	svc := service.NewJobService(repo, nopQueue{}, workspace.NewManager(t.TempDir())).
		WithIDGenerator(func() string { return "feedbeef" })
	srv := httptest.NewServer(httptransport.Routes(httptransport.NewHandler(svc, zerolog.Nop()), zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestClient_GenerateAndStatus(t *testing.T) {
	srv, _ := newServer(t)
	c := client.New(srv.URL, nil)
	ctx := context.Background()

	job, err := c.Generate(ctx, "winter", 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if job.ID != "feedbeef" || job.Status != entity.StatusProcessing {
		t.Fatalf("unexpected job %+v", job)
	}

	got, err := c.Status(ctx, "feedbeef")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.DurationMinutes != 12 || got.Keyword != "winter" {
		t.Fatalf("unexpected status %+v", got)
	}

	missing, err := c.Status(ctx, "nope")
	if err != nil || missing.Status != entity.StatusNotFound {
		t.Fatalf("expected not_found, got %+v, %v", missing, err)
	}
}

func TestClient_WaitStopsOnTerminal(t *testing.T) {
	srv, repo := newServer(t)
	c := client.New(srv.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := c.Generate(ctx, "x", 1); err != nil {
		t.Fatal(err)
	}

	var polls atomic.Int32
	job, err := c.Wait(ctx, "feedbeef", 10*time.Millisecond, func(j *entity.Job) {
		if polls.Add(1) == 2 {
			failed := entity.StatusFailed
			msg := "script: boom"
			_ = repo.Update(ctx, "feedbeef", entity.JobPatch{Status: &failed, Error: &msg})
		}
	})
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if job.Status != entity.StatusFailed || job.Error == nil || *job.Error != "script: boom" {
		t.Fatalf("unexpected final job %+v", job)
	}
}

func TestClient_DownloadNotFound(t *testing.T) {
	srv, _ := newServer(t)
	c := client.New(srv.URL, nil)

	var buf bytes.Buffer
	if _, err := c.Download(context.Background(), "nope", &buf); !errors.Is(err, client.ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestClient_APIError(t *testing.T) {
	srv, _ := newServer(t)

	bad := client.New(srv.URL+"/missing-prefix", nil)
	_, err := bad.Generate(context.Background(), "x", 0)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected APIError 404, got %v", err)
	}
}

func TestClient_DownloadIsNotCutByRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/download/slow":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("part1-"))
			w.(http.Flusher).Flush()
			time.Sleep(150 * time.Millisecond)
			_, _ = w.Write([]byte("part2"))
		default:
			time.Sleep(150 * time.Millisecond)
			_, _ = w.Write([]byte(`{"job_id":"slow","status":"processing"}`))
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL, nil).WithRequestTimeout(50 * time.Millisecond)

	var buf bytes.Buffer
	if _, err := c.Download(context.Background(), "slow", &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if buf.String() != "part1-part2" {
		t.Fatalf("expected the whole body, got %q", buf.String())
	}

	if _, err := c.Status(context.Background(), "slow"); err == nil {
		t.Fatal("expected status call to hit the request timeout")
	}
}
