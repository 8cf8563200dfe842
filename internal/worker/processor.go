package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"video-generator-service/internal/entity"
	"video-generator-service/internal/repository"
	"video-generator-service/internal/stage"
	"video-generator-service/internal/workspace"
)

const (
	progressScript     = "script 1/4"
	progressAssembling = "assembling"
	progressDone       = "done"
)

// ErrRecordUnavailable means the job record could not be read, so nothing was
// run or recorded. The pool leaves such ids unacknowledged.
var ErrRecordUnavailable = errors.New("job record unavailable")

type JobRepo interface {
	GetByID(ctx context.Context, id string) (*entity.Job, error)
	Update(ctx context.Context, id string, patch entity.JobPatch) error
}

type WorkspaceAllocator interface {
	Allocate(jobID string) (workspace.Workspace, error)
}

// Processor runs the script -> image -> audio -> assembly pipeline for one
// job. It is the only writer of a job's record once the job is queued.
type Processor struct {
	repo       JobRepo
	workspaces WorkspaceAllocator
	stages     stage.Set
	log        zerolog.Logger
	videoURL   func(jobID string) string
}

func NewProcessor(repo JobRepo, workspaces WorkspaceAllocator, stages stage.Set, log zerolog.Logger) *Processor {
	return &Processor{
		repo:       repo,
		workspaces: workspaces,
		stages:     stages,
		log:        log,
		videoURL:   DownloadURL,
	}
}

// DownloadURL is the canonical reference stored on completed jobs.
func DownloadURL(jobID string) string {
	return "/download/" + jobID
}

// Process executes the pipeline and records the terminal state. Stage
// failures and panics end up on the job record; the returned error is
// non-nil only when the record itself could not be read or written.
func (p *Processor) Process(ctx context.Context, jobID string) (err error) {
	start := time.Now()
	log := p.log.With().Str("job_id", jobID).Logger()

	job, err := p.repo.GetByID(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Msg("get job")
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrRecordUnavailable, err)
	}
	if job.Status.Terminal() {
		log.Warn().Str("status", string(job.Status)).Msg("job already finished, skipping")
		return nil
	}

	// terminal writes must land even if the pool is shutting down
	writeCtx := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			runErr := &stage.Error{Kind: stage.KindInternal, Stage: stage.NamePipeline, Err: fmt.Errorf("panic: %v", r)}
			err = p.fail(writeCtx, log, jobID, runErr, start)
		}
	}()

	log.Info().Str("keyword", job.Keyword).Int("duration_minutes", job.DurationMinutes).Msg("pipeline started")

	if runErr := p.run(ctx, job); runErr != nil {
		return p.fail(writeCtx, log, jobID, runErr, start)
	}

	status := entity.StatusCompleted
	url := p.videoURL(jobID)
	done := progressDone
	if err := p.repo.Update(writeCtx, jobID, entity.JobPatch{Status: &status, VideoURL: &url, Progress: &done}); err != nil {
		log.Error().Err(err).Msg("set completed")
		return err
	}

	log.Info().Str("status", string(status)).Int64("duration_ms", time.Since(start).Milliseconds()).Msg("pipeline finished")
	return nil
}

func (p *Processor) run(ctx context.Context, job *entity.Job) error {
	ws, err := p.workspaces.Allocate(job.ID)
	if err != nil {
		if stage.KindOf(err) != stage.KindWorkspace {
			err = stage.Workspace(err)
		}
		return err
	}

	if err := p.progress(ctx, job.ID, progressScript); err != nil {
		return err
	}
	scenes, err := p.stages.Script.WriteScript(ctx, job.Keyword, job.DurationMinutes)
	if err != nil {
		return stage.Collaborator(stage.NameScript, 0, err)
	}
	if err := validateScenes(scenes); err != nil {
		return stage.Collaborator(stage.NameScript, 0, err)
	}
	n := len(scenes)
	for i := range scenes {
		scenes[i].Index = i + 1
	}
	p.log.Debug().Str("job_id", job.ID).Int("scenes", n).Msg("script ready")

	images := make([]string, n)
	for i, sc := range scenes {
		if err := p.progress(ctx, job.ID, fmt.Sprintf("image %d/%d", sc.Index, n)); err != nil {
			return err
		}
		dst := ws.ImagePath(sc.Index, n)
		if err := p.stages.Image.GenerateImage(ctx, sc.ImageDirective, dst); err != nil {
			return stage.Collaborator(stage.NameImage, sc.Index, err)
		}
		images[i] = dst
	}

	audio := make([]string, n)
	for i, sc := range scenes {
		if err := p.progress(ctx, job.ID, fmt.Sprintf("audio %d/%d", sc.Index, n)); err != nil {
			return err
		}
		dst := ws.AudioPath(sc.Index, n)
		if err := p.stages.Speech.Synthesize(ctx, sc.Narration, dst); err != nil {
			return stage.Collaborator(stage.NameSpeech, sc.Index, err)
		}
		audio[i] = dst
	}

	if err := p.progress(ctx, job.ID, progressAssembling); err != nil {
		return err
	}
	if err := p.stages.Assembly.Assemble(ctx, images, audio, scenes, ws.Video); err != nil {
		return stage.Collaborator(stage.NameAssembly, 0, err)
	}
	return nil
}

func (p *Processor) progress(ctx context.Context, jobID, msg string) error {
	if err := p.repo.Update(ctx, jobID, entity.JobPatch{Progress: &msg}); err != nil {
		return fmt.Errorf("update progress %q: %w", msg, err)
	}
	return nil
}

func (p *Processor) fail(ctx context.Context, log zerolog.Logger, jobID string, runErr error, start time.Time) error {
	msg := runErr.Error()
	kind := string(stage.KindOf(runErr))
	status := entity.StatusFailed

	log.Error().
		Str("status", string(status)).
		Str("error_kind", kind).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg(msg)

	if err := p.repo.Update(ctx, jobID, entity.JobPatch{Status: &status, Error: &msg, ErrorKind: &kind}); err != nil {
		log.Error().Err(err).Msg("set failed")
		return err
	}
	return nil
}

var errEmptyScript = errors.New("script has no scenes")

func validateScenes(scenes []entity.Scene) error {
	if len(scenes) == 0 {
		return errEmptyScript
	}
	for i, sc := range scenes {
		if strings.TrimSpace(sc.Narration) == "" {
			return fmt.Errorf("scene %d has no narration", i+1)
		}
		if strings.TrimSpace(sc.ImageDirective) == "" {
			return fmt.Errorf("scene %d has no image prompt", i+1)
		}
	}
	return nil
}
