package api

import (
	"context"

	"github.com/tbessa/volumetry/internal/exclusion"
	"github.com/tbessa/volumetry/internal/pipeline"
	"github.com/tbessa/volumetry/internal/records"
	"github.com/tbessa/volumetry/internal/reference"
	"github.com/tbessa/volumetry/internal/rejections"
	"github.com/tbessa/volumetry/internal/staging"
	"github.com/tbessa/volumetry/internal/uploads"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Uploads      uploads.System
	Staging      staging.System
	Records      records.System
	Rejections   rejections.System
	Reference    reference.System
	Queue        pipeline.Queue
	Orchestrator *pipeline.Orchestrator
	Pool         *pipeline.Pool
	Watchdog     *uploads.Watchdog
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	logger := runtime.Logger

	uploadSys := uploads.New(db, logger)
	stagingSys := staging.New(db, logger, runtime.Pipeline.ChunkSize)
	recordSys := records.New(db, logger)
	rejectionSys := rejections.New(db, logger)
	referenceSys := reference.New(db, logger)
	queue := pipeline.NewQueue(db, logger)

	filter := exclusion.New(stagingSys, runtime.Pipeline.Exclusion, logger)

	orchestrator := pipeline.NewOrchestrator(
		uploadSys,
		stagingSys,
		recordSys,
		rejectionSys,
		referenceSys,
		runtime.Storage,
		filter,
		queue,
		runtime.Pipeline.ChunkSize,
		logger,
	)

	pool := pipeline.NewPool(queue, orchestrator, pipeline.PoolConfig{
		Workers:      runtime.Pipeline.Workers,
		PollInterval: runtime.Pipeline.PollIntervalDuration(),
		JobLease:     runtime.Pipeline.JobLeaseDuration(),
		MaxAttempts:  runtime.Pipeline.MaxAttempts,
	}, logger)

	watchdog := uploads.NewWatchdog(uploadSys, recordSys, uploads.SweepConfig{
		Soft: runtime.Pipeline.WatchdogSoftDuration(),
		Hard: runtime.Pipeline.WatchdogHardDuration(),
	}, logger)

	return &Domain{
		Uploads:      uploadSys,
		Staging:      stagingSys,
		Records:      recordSys,
		Rejections:   rejectionSys,
		Reference:    referenceSys,
		Queue:        queue,
		Orchestrator: orchestrator,
		Pool:         pool,
		Watchdog:     watchdog,
	}
}

// Start launches the background worker pool and the periodic watchdog sweep
// under the lifecycle coordinator.
func (d *Domain) Start(runtime *Runtime) error {
	if err := d.Pool.Start(runtime.Lifecycle); err != nil {
		return err
	}

	runtime.Lifecycle.Tick(
		runtime.Pipeline.WatchdogIntervalDuration(),
		func(ctx context.Context) {
			if _, err := d.Watchdog.Sweep(ctx); err != nil {
				runtime.Logger.Error("watchdog sweep failed", "error", err)
			}
		},
	)
	return nil
}
