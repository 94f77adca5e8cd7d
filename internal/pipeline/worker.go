package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbessa/volumetry/pkg/lifecycle"
)

// PoolConfig sizes the background worker pool.
type PoolConfig struct {
	Workers      int
	PollInterval time.Duration
	JobLease     time.Duration
	MaxAttempts  int
}

// Pool drains the job queue with a fixed set of workers. Each worker claims
// one job at a time, runs the background phase for its batch, and
// acknowledges the job. Batches processed by different workers are fully
// independent; records within one batch stay an ordered pipeline.
type Pool struct {
	queue        Queue
	orchestrator *Orchestrator
	cfg          PoolConfig
	logger       *slog.Logger
}

// NewPool creates a worker pool over the queue and orchestrator.
func NewPool(queue Queue, orchestrator *Orchestrator, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.JobLease <= 0 {
		cfg.JobLease = 15 * time.Minute
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &Pool{
		queue:        queue,
		orchestrator: orchestrator,
		cfg:          cfg,
		logger:       logger.With("system", "workers"),
	}
}

// Start launches the workers under the lifecycle context. A shutdown hook
// waits for in-flight jobs to finish before the coordinator completes.
func (p *Pool) Start(lc *lifecycle.Coordinator) error {
	ctx := lc.Context()
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			p.run(ctx, worker)
			return nil
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := g.Wait(); err != nil {
			p.logger.Error("worker pool stopped with error", "error", err)
		}
	})

	p.logger.Info("worker pool started", "workers", p.cfg.Workers)
	return nil
}

func (p *Pool) run(ctx context.Context, worker int) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	logger := p.logger.With("worker", worker)
	for {
		// drain everything available before sleeping
		for p.work(ctx, logger) {
			if ctx.Err() != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// work claims and processes one job, reporting whether a job was available.
func (p *Pool) work(ctx context.Context, logger *slog.Logger) bool {
	job, err := p.queue.Claim(ctx, p.cfg.JobLease)
	if err != nil {
		if !errors.Is(err, ErrNoJob) && ctx.Err() == nil {
			logger.Error("claim failed", "error", err)
		}
		return false
	}

	logger.Info("job claimed",
		"job_id", job.ID,
		"batch_id", job.UploadBatchID,
		"attempt", job.Attempts,
	)

	if err := p.orchestrator.Process(ctx, job.UploadBatchID); err != nil {
		if failErr := p.queue.Fail(ctx, job.ID, err, p.cfg.MaxAttempts); failErr != nil {
			logger.Error("job fail-mark failed", "job_id", job.ID, "error", failErr)
		}
		return true
	}

	if err := p.queue.Complete(ctx, job.ID); err != nil {
		logger.Error("job acknowledgment failed", "job_id", job.ID, "error", err)
	}
	return true
}
