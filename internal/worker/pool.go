package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"video-generator-service/internal/service"
)

type JobProcessor interface {
	Process(ctx context.Context, jobID string) error
}

// Pool claims job ids from the queue and runs each on one of its workers.
type Pool struct {
	queue      service.Queue
	processor  JobProcessor
	workers    int
	claimDelay time.Duration
	log        zerolog.Logger
}

func NewPool(queue service.Queue, processor JobProcessor, workers int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{
		queue:      queue,
		processor:  processor,
		workers:    workers,
		claimDelay: 5 * time.Second,
		log:        log,
	}
}

// Run blocks until ctx is cancelled and all workers have returned.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info().Int("workers", p.workers).Msg("worker pool started")

	jobCh := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			log := p.log.With().Int("worker", n).Logger()
			for jobID := range jobCh {
				if err := p.processor.Process(ctx, jobID); err != nil {
					log.Error().Err(err).Str("job_id", jobID).Msg("process job")
					if errors.Is(err, ErrRecordUnavailable) {
						// stays in the processing list for the startup requeue
						continue
					}
				}

				// the outcome is already on the job record
				if ackErr := p.queue.Ack(context.WithoutCancel(ctx), jobID); ackErr != nil {
					log.Error().Err(ackErr).Str("job_id", jobID).Msg("ack job")
				}
			}
		}(i + 1)
	}

	defer func() {
		close(jobCh)
		wg.Wait()
		p.log.Info().Msg("worker pool stopped")
	}()

	for {
		jobID, err := p.queue.Claim(ctx, p.claimDelay)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, service.ErrQueueEmpty) {
				p.log.Warn().Err(err).Msg("claim job")
				// avoid spinning on a broken backend
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return nil
				}
			}
			continue
		}
		select {
		case jobCh <- jobID:
		case <-ctx.Done():
			return nil
		}
	}
}
