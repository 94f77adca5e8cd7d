// Package pipeline coordinates the two processing phases of an upload batch:
// a short staging phase that parses the extract into the raw record store,
// and a background phase that applies the rule table, splits composite exams,
// resolves prices, filters retroactive records, and promotes the survivors
// into the canonical store. The phases are stitched together by a durable
// job queue so a crash between them cannot strand a batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/exclusion"
	"github.com/tbessa/volumetry/internal/pricing"
	"github.com/tbessa/volumetry/internal/records"
	"github.com/tbessa/volumetry/internal/reference"
	"github.com/tbessa/volumetry/internal/rejections"
	"github.com/tbessa/volumetry/internal/rules"
	"github.com/tbessa/volumetry/internal/split"
	"github.com/tbessa/volumetry/internal/staging"
	"github.com/tbessa/volumetry/internal/uploads"
	"github.com/tbessa/volumetry/internal/vocab"
	"github.com/tbessa/volumetry/pkg/period"
	"github.com/tbessa/volumetry/pkg/storage"
)

// Stage names recorded in batch error details and rejection rows.
const (
	StageStaging   = "staging"
	StageRules     = "rules"
	StageExclusion = "exclusion"
	StageCommit    = "commit"
)

// Orchestrator drives batches through both phases and owns the destructive
// administrative operations that span stores.
type Orchestrator struct {
	uploads    uploads.System
	staging    staging.System
	records    records.System
	rejections rejections.System
	refs       reference.System
	store      storage.System
	exclusion  *exclusion.Filter
	engine     *rules.Engine
	queue      Queue
	chunkSize  int
	logger     *slog.Logger
}

// NewOrchestrator wires the pipeline over its collaborating systems.
func NewOrchestrator(
	uploadSys uploads.System,
	stagingSys staging.System,
	recordSys records.System,
	rejectionSys rejections.System,
	refs reference.System,
	store storage.System,
	filter *exclusion.Filter,
	queue Queue,
	chunkSize int,
	logger *slog.Logger,
) *Orchestrator {
	if chunkSize < 1 {
		chunkSize = 500
	}
	return &Orchestrator{
		uploads:    uploadSys,
		staging:    stagingSys,
		records:    recordSys,
		rejections: rejectionSys,
		refs:       refs,
		store:      store,
		exclusion:  filter,
		engine:     rules.NewEngine(),
		queue:      queue,
		chunkSize:  chunkSize,
		logger:     logger.With("system", "pipeline"),
	}
}

// IngestCommand triggers the staging phase for one extract file.
type IngestCommand struct {
	FilePath        string
	SourceType      vocab.SourceType
	PeriodReference string
	UploadID        uuid.UUID
	ForceStaging    bool
}

// IngestResult reports the staging phase outcome.
type IngestResult struct {
	Batch    uploads.Batch
	Staged   int
	Rejected int
	Job      Job
}

// Ingest runs the staging phase: claim or create the batch, stream the
// extract from blob storage, stage its rows, and enqueue the background job.
// It returns as soon as staging lands; processing happens on the worker pool.
func (o *Orchestrator) Ingest(ctx context.Context, cmd IngestCommand) (IngestResult, error) {
	if _, err := period.ParseReference(cmd.PeriodReference); err != nil {
		return IngestResult{}, fmt.Errorf("%w: %s", uploads.ErrInvalidPeriod, cmd.PeriodReference)
	}

	batch, err := o.claimBatch(ctx, cmd)
	if err != nil {
		return IngestResult{}, err
	}

	result, err := o.stage(ctx, batch, cmd)
	if err != nil {
		o.failBatch(ctx, batch.ID, StageStaging, err)
		return IngestResult{}, err
	}
	return result, nil
}

// claimBatch resolves the batch to stage into: an existing pending batch, a
// force-restaged batch, or a freshly created one.
func (o *Orchestrator) claimBatch(ctx context.Context, cmd IngestCommand) (uploads.Batch, error) {
	if cmd.UploadID == uuid.Nil {
		return o.uploads.Create(ctx, uploads.CreateCommand{
			FileName:        cmd.FilePath,
			SourceType:      cmd.SourceType,
			PeriodReference: cmd.PeriodReference,
		})
	}

	batch, err := o.uploads.Find(ctx, cmd.UploadID)
	if err != nil {
		return uploads.Batch{}, err
	}

	if batch.Status == uploads.StatusPending {
		return batch, nil
	}

	if !cmd.ForceStaging {
		return uploads.Batch{}, fmt.Errorf("%w: batch %s is %s, not pending",
			uploads.ErrInvalidTransition, batch.ID, batch.Status)
	}
	return o.Reset(ctx, batch.ID)
}

func (o *Orchestrator) stage(ctx context.Context, batch uploads.Batch, cmd IngestCommand) (IngestResult, error) {
	if err := o.uploads.Transition(ctx, batch.ID, uploads.StatusPending, uploads.StatusProcessing); err != nil {
		return IngestResult{}, err
	}

	body, err := o.store.Download(ctx, cmd.FilePath)
	if err != nil {
		return IngestResult{}, fmt.Errorf("download extract %s: %w", cmd.FilePath, err)
	}
	defer body.Close()

	parsed, err := parseExtract(body, batch.ID, cmd.SourceType, cmd.PeriodReference)
	if err != nil {
		return IngestResult{}, err
	}

	for _, rowErr := range parsed.Errors {
		if _, err := o.rejections.Record(ctx, rejections.Command{
			UploadBatchID: batch.ID,
			Stage:         StageStaging,
			Rule:          "parse_row",
			Reason:        fmt.Sprintf("line %d: %s", rowErr.Line, rowErr.Reason),
			RawPayload:    rowErr.Raw,
		}); err != nil {
			return IngestResult{}, err
		}
	}

	staged, err := o.staging.BulkInsert(ctx, parsed.Records)
	if err != nil {
		return IngestResult{}, err
	}

	if err := o.uploads.UpdateCounters(ctx, batch.ID, uploads.Counters{
		Processed: staged + len(parsed.Errors),
		Rejected:  len(parsed.Errors),
	}); err != nil {
		return IngestResult{}, err
	}

	if err := o.uploads.Transition(ctx, batch.ID, uploads.StatusProcessing, uploads.StatusStagingCompleted); err != nil {
		return IngestResult{}, err
	}

	job, err := o.queue.Enqueue(ctx, batch.ID)
	if err != nil {
		return IngestResult{}, err
	}

	batch, err = o.uploads.Find(ctx, batch.ID)
	if err != nil {
		return IngestResult{}, err
	}

	o.logger.Info("staging phase finished",
		"batch_id", batch.ID,
		"staged", staged,
		"rejected", len(parsed.Errors),
	)
	return IngestResult{
		Batch:    batch,
		Staged:   staged,
		Rejected: len(parsed.Errors),
		Job:      job,
	}, nil
}

// Process runs the background phase for one batch. It is resumable: a
// re-invocation after a crash picks up where the previous one stopped, and
// already-promoted chunks are never counted twice.
func (o *Orchestrator) Process(ctx context.Context, batchID uuid.UUID) error {
	batch, err := o.uploads.Find(ctx, batchID)
	if err != nil {
		return err
	}

	switch batch.Status {
	case uploads.StatusStagingCompleted:
		if err := o.uploads.Transition(ctx, batchID, uploads.StatusStagingCompleted, uploads.StatusProcessing); err != nil {
			return err
		}
	case uploads.StatusProcessing, uploads.StatusError:
		// resuming an interrupted or retried run
	default:
		o.logger.Info("skipping batch not ready for processing",
			"batch_id", batchID, "status", batch.Status)
		return nil
	}

	refs, err := o.refs.Load(ctx)
	if err != nil {
		o.failBatch(ctx, batchID, StageRules, err)
		return fmt.Errorf("load reference data: %w", err)
	}

	if err := o.applyRules(ctx, batch, refs); err != nil {
		o.failBatch(ctx, batchID, StageRules, err)
		return err
	}

	if _, err := o.exclusion.Apply(ctx, batchID, batch.SourceType, batch.PeriodReference); err != nil {
		o.failBatch(ctx, batchID, StageExclusion, err)
		return err
	}

	if err := o.commit(ctx, batchID); err != nil {
		o.failBatch(ctx, batchID, StageCommit, err)
		return err
	}

	if err := o.reconcileCounters(ctx, batchID); err != nil {
		o.failBatch(ctx, batchID, StageCommit, err)
		return err
	}

	if err := o.uploads.MarkCompleted(ctx, batchID); err != nil {
		return err
	}

	o.logger.Info("background phase finished", "batch_id", batchID)
	return nil
}

// applyRules drains the batch's pending records chunk by chunk, running the
// rule table, replacing composite parents with their split children, and
// resolving prices. Split children re-enter the pending set and are ruled on
// a later chunk.
func (o *Orchestrator) applyRules(ctx context.Context, batch uploads.Batch, refs *reference.Set) error {
	for {
		chunk, err := o.staging.NextChunk(ctx, batch.ID, staging.StatusPending, o.chunkSize)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}

		for i := range chunk {
			rec := &chunk[i]

			if out := o.engine.Apply(&rec.Exam, refs); out.Rejected {
				if err := o.rejectRecord(ctx, rec, out); err != nil {
					return err
				}
				continue
			}

			if children, ok := split.Expand(rec, refs); ok {
				if err := o.staging.ReplaceWithChildren(ctx, rec, children); err != nil {
					return err
				}
				continue
			}

			pricing.Resolve(&rec.Exam, refs)

			if err := o.staging.SaveRuled(ctx, rec); err != nil {
				return err
			}
		}
	}
}

func (o *Orchestrator) rejectRecord(ctx context.Context, rec *staging.Record, out rules.Outcome) error {
	if _, err := o.rejections.Record(ctx, rejections.Command{
		UploadBatchID: rec.UploadBatchID,
		Stage:         StageRules,
		Rule:          out.Rule,
		Reason:        out.Reason,
		RawPayload:    rec.RawRow,
	}); err != nil {
		return err
	}
	return o.staging.MarkRejected(ctx, rec.ID)
}

// commit drains the ruled records into the canonical store.
func (o *Orchestrator) commit(ctx context.Context, batchID uuid.UUID) error {
	for {
		chunk, err := o.staging.NextChunk(ctx, batchID, staging.StatusRuled, o.chunkSize)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}

		if _, err := o.records.Commit(ctx, batchID, chunk); err != nil {
			return err
		}
	}
}

// reconcileCounters recomputes the batch counters from the stores instead of
// accumulating increments, so an interrupted and resumed run converges on
// the same numbers as a single clean run. The inserted/updated split comes
// from the canonical row timestamps rather than per-run upsert results, so
// updates landed by an earlier interrupted run are never recounted as
// inserts. The processed count keeps the value recorded at staging time;
// exclusion deletions do not shrink it.
func (o *Orchestrator) reconcileCounters(ctx context.Context, batchID uuid.UUID) error {
	batch, err := o.uploads.Find(ctx, batchID)
	if err != nil {
		return err
	}

	promoted, err := o.records.PromotionCounts(ctx, batchID)
	if err != nil {
		return err
	}

	rejected, err := o.rejections.CountByBatch(ctx, batchID)
	if err != nil {
		return err
	}

	return o.uploads.UpdateCounters(ctx, batchID, uploads.Counters{
		Processed: batch.RecordsProcessed,
		Inserted:  promoted.Inserted,
		Updated:   promoted.Updated,
		Rejected:  rejected,
	})
}

func (o *Orchestrator) failBatch(ctx context.Context, batchID uuid.UUID, stage string, cause error) {
	err := o.uploads.MarkError(ctx, batchID, uploads.ErrorDetail{
		Stage:      stage,
		Message:    cause.Error(),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, uploads.ErrInvalidTransition) {
		o.logger.Error("failed to record batch error",
			"batch_id", batchID, "stage", stage, "error", err)
	}
}

// Reset clears a batch's staged-but-uncommitted rows and returns it to
// pending. Promoted canonical rows survive a reset; use Rollback to purge.
func (o *Orchestrator) Reset(ctx context.Context, batchID uuid.UUID) (uploads.Batch, error) {
	if _, err := o.staging.DeleteUncommitted(ctx, batchID); err != nil {
		return uploads.Batch{}, err
	}
	return o.uploads.Reset(ctx, batchID)
}

// Rollback purges everything a batch produced, canonical rows included, and
// marks the batch rollback_executed. Re-running a rollback removes nothing
// further and still succeeds.
func (o *Orchestrator) Rollback(ctx context.Context, batchID uuid.UUID) (uploads.RollbackResult, error) {
	batch, err := o.uploads.Find(ctx, batchID)
	if err != nil {
		return uploads.RollbackResult{}, err
	}
	if batch.Status == uploads.StatusRollbackExecuted {
		return uploads.RollbackResult{}, nil
	}

	canonical, err := o.records.DeleteByBatch(ctx, batchID)
	if err != nil {
		return uploads.RollbackResult{}, err
	}

	staged, err := o.staging.DeleteBatch(ctx, batchID)
	if err != nil {
		return uploads.RollbackResult{}, err
	}

	if err := o.uploads.MarkRolledBack(ctx, batchID); err != nil {
		return uploads.RollbackResult{}, err
	}

	o.logger.Info("batch rolled back",
		"batch_id", batchID,
		"canonical_deleted", canonical,
		"staged_deleted", staged,
	)
	return uploads.RollbackResult{
		CanonicalDeleted: canonical,
		StagedDeleted:    staged,
	}, nil
}
