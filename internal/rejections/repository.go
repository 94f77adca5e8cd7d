package rejections

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/pkg/repository"
)

// System defines the public contract for the rejection store.
type System interface {
	// Record persists a rejection.
	Record(ctx context.Context, cmd Command) (*Rejection, error)
	// ListByBatch returns every rejection of an upload batch.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]Rejection, error)
	// CountByBatch returns the number of rejections of an upload batch.
	CountByBatch(ctx context.Context, batchID uuid.UUID) (int, error)
	// Purge bulk-deletes rejections older than the retention horizon.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a rejection repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "rejections"),
	}
}

func (r *repo) Record(ctx context.Context, cmd Command) (*Rejection, error) {
	const q = `
		INSERT INTO rejected_records(id, upload_batch_id, stage, rule, reason, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, upload_batch_id, stage, rule, reason, raw_payload, created_at`

	rej, err := repository.QueryOne(ctx, r.db, q,
		[]any{uuid.New(), cmd.UploadBatchID, cmd.Stage, cmd.Rule, cmd.Reason, cmd.RawPayload},
		scanRejection,
	)
	if err != nil {
		return nil, fmt.Errorf("record rejection: %w", err)
	}

	r.logger.Info("record rejected",
		"batch_id", cmd.UploadBatchID,
		"stage", cmd.Stage,
		"rule", cmd.Rule,
		"reason", cmd.Reason,
	)
	return &rej, nil
}

func (r *repo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]Rejection, error) {
	const q = `
		SELECT id, upload_batch_id, stage, rule, reason, raw_payload, created_at
		FROM rejected_records
		WHERE upload_batch_id = $1
		ORDER BY created_at`

	rejs, err := repository.QueryMany(ctx, r.db, q, []any{batchID}, scanRejection)
	if err != nil {
		return nil, fmt.Errorf("list rejections: %w", err)
	}
	return rejs, nil
}

func (r *repo) CountByBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rejected_records WHERE upload_batch_id = $1",
		batchID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rejections: %w", err)
	}
	return count, nil
}

func (r *repo) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	n, err := repository.ExecCount(ctx, r.db,
		"DELETE FROM rejected_records WHERE created_at < $1",
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("purge rejections: %w", err)
	}

	if n > 0 {
		r.logger.Info("rejections purged", "count", n, "older_than", olderThan)
	}
	return n, nil
}

func scanRejection(s repository.Scanner) (Rejection, error) {
	var rej Rejection
	err := s.Scan(
		&rej.ID,
		&rej.UploadBatchID,
		&rej.Stage,
		&rej.Rule,
		&rej.Reason,
		&rej.RawPayload,
		&rej.CreatedAt,
	)
	return rej, err
}
