// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"video-generator-service/internal/collaborator/ffmpeg"
	"video-generator-service/internal/collaborator/googletts"
	"video-generator-service/internal/collaborator/openai"
	"video-generator-service/internal/config"
	"video-generator-service/internal/logger"
	"video-generator-service/internal/repository/memory"
	"video-generator-service/internal/repository/postgresql"
	"video-generator-service/internal/service"
	"video-generator-service/internal/stage"
	httptransport "video-generator-service/internal/transport/http"
	"video-generator-service/internal/worker"
	"video-generator-service/internal/workspace"
)

const shutdownTimeout = 15 * time.Second

// @title Video Generator API
// @version 1.0
// @description Turns a keyword into a narrated slideshow video.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New(os.Getenv("APP_ENV"))
		l.Fatal().Err(err).Msg("config")
	}
	log := logger.New(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error")
	}
	log.Info().Msg("service stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	repo, closeRepo, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	queue, closeQueue, err := openQueue(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeQueue()

	workspaces := workspace.NewManager(cfg.OutputDir)
	stages := stage.Set{
		Script: openai.NewScriptWriter(openai.ScriptOptions{
			Options:  openai.Options{APIKey: cfg.OpenAI.APIKey, BaseURL: cfg.OpenAI.BaseURL},
			Model:    cfg.OpenAI.ScriptModel,
			Scenes:   cfg.Script.Scenes,
			Language: cfg.Script.Language,
		}),
		Image: openai.NewImageGenerator(openai.ImageOptions{
			Options: openai.Options{APIKey: cfg.OpenAI.APIKey, BaseURL: cfg.OpenAI.BaseURL},
			Model:   cfg.OpenAI.ImageModel,
			Size:    cfg.OpenAI.ImageSize,
			Quality: cfg.OpenAI.ImageQuality,
		}),
		Speech: googletts.New(googletts.Options{
			CredentialsJSON: cfg.TTS.CredentialsJSON,
			Language:        cfg.TTS.Language,
			Voice:           cfg.TTS.Voice,
			Gender:          cfg.TTS.Gender,
			SpeakingRate:    cfg.TTS.SpeakingRate,
		}),
		Assembly: ffmpeg.New(ffmpeg.Options{
			FFmpegBin:  cfg.Video.FFmpegBin,
			FFprobeBin: cfg.Video.FFprobeBin,
			Font:       cfg.Video.Font,
			FontSize:   cfg.Video.FontSize,
			FPS:        cfg.Video.FPS,
			Height:     cfg.Video.Height,
			WrapWidth:  cfg.Video.WrapWidth,
		}),
	}
	if cfg.OpenAI.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set; jobs will fail at the script stage")
	}

	processor := worker.NewProcessor(repo, workspaces, stages, log.With().Str("component", "processor").Logger())
	pool := worker.NewPool(queue, processor, cfg.Workers, log.With().Str("component", "pool").Logger())

	jobSvc := service.NewJobService(repo, queue, workspaces)
	handler := httptransport.NewHandler(jobSvc, log)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      httptransport.Routes(handler, log),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	log.Info().
		Str("port", cfg.HTTP.Port).
		Int("workers", cfg.Workers).
		Str("output_dir", workspaces.Root()).
		Str("store", cfg.Store.Backend).
		Str("queue", cfg.Queue.Backend).
		Msg("service starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type jobStore interface {
	service.JobRepository
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (jobStore, func(), error) {
	if cfg.Store.Backend != config.BackendPostgres {
		return memory.NewJobRepository(), func() {}, nil
	}

	pool, err := postgresql.NewPool(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	repo := postgresql.NewJobRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info().Str("postgres_dsn", redactDSN(cfg.Store.PostgresDSN)).Msg("postgres store ready")
	return repo, closePool(pool), nil
}

func closePool(pool *pgxpool.Pool) func() {
	return func() { pool.Close() }
}

func openQueue(ctx context.Context, cfg *config.Config, log zerolog.Logger) (service.Queue, func(), error) {
	if cfg.Queue.Backend != config.BackendRedis {
		return service.NewMemoryQueue(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	queue := service.NewRedisQueue(rdb, cfg.Queue.QueueKey, cfg.Queue.ProcessingKey)

	// Ids left claimed by a previous process never got acked.
	n, err := queue.RequeueStale(ctx, 1000)
	if err != nil {
		log.Warn().Err(err).Msg("requeue stale jobs")
	} else if n > 0 {
		log.Info().Int64("requeued", n).Msg("requeued jobs from processing list")
	}

	log.Info().
		Str("redis_addr", cfg.Queue.RedisAddr).
		Str("queue_key", cfg.Queue.QueueKey).
		Str("processing_key", cfg.Queue.ProcessingKey).
		Msg("redis queue ready")
	return queue, func() { _ = rdb.Close() }, nil
}

var dsnPassword = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

func redactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, `://$1:****@`)
}
