package staging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/vocab"
)

// System defines the public contract for the raw record store.
type System interface {
	// BulkInsert stages records in chunks, returning the number inserted.
	BulkInsert(ctx context.Context, records []Record) (int, error)

	// NextChunk returns up to limit records of a batch in the given status,
	// ordered by id for stable resumption.
	NextChunk(ctx context.Context, batchID uuid.UUID, status Status, limit int) ([]Record, error)

	// SaveRuled writes back a record's mutated attributes and marks it ruled.
	SaveRuled(ctx context.Context, rec *Record) error

	// MarkRejected transitions a record to the rejected status.
	MarkRejected(ctx context.Context, id uuid.UUID) error

	// ReplaceWithChildren atomically replaces a composite parent record with
	// its child records: either all children are staged and the parent row is
	// removed, or nothing changes.
	ReplaceWithChildren(ctx context.Context, parent *Record, children []Record) error

	// MarkPromoted transitions the given records to promoted within an
	// existing transaction boundary managed by the caller.
	MarkPromoted(ctx context.Context, ids []uuid.UUID) error

	// Counts returns the per-status row counts for a batch.
	Counts(ctx context.Context, batchID uuid.UUID) (StatusCounts, error)

	// DeleteUncommitted removes a batch's staged-but-unpromoted rows,
	// returning the number deleted. Used by the administrative reset.
	DeleteUncommitted(ctx context.Context, batchID uuid.UUID) (int64, error)

	// DeleteBatch removes every staged row of a batch.
	DeleteBatch(ctx context.Context, batchID uuid.UUID) (int64, error)

	// DeleteRealizedOnOrAfter removes a batch's rows from the given source
	// channels whose realization date falls on or after the cutoff. Zero
	// deletions is success; re-runs are absorbed silently.
	DeleteRealizedOnOrAfter(ctx context.Context, batchID uuid.UUID, sources []vocab.SourceType, cutoff time.Time) (int64, error)

	// DeleteReportedOutside removes a batch's rows from the given source
	// channels whose report date falls outside the inclusive window.
	DeleteReportedOutside(ctx context.Context, batchID uuid.UUID, sources []vocab.SourceType, start, end time.Time) (int64, error)
}
