package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/staging"
	"github.com/tbessa/volumetry/pkg/pagination"
)

// System defines the canonical exam record operations.
type System interface {
	// Commit upserts a chunk of ruled staged records into the canonical
	// store and marks them promoted, all in one transaction. Records whose
	// identity already exists are overwritten in place and counted as updates.
	Commit(ctx context.Context, batchID uuid.UUID, recs []staging.Record) (CommitResult, error)

	// Find retrieves a canonical record by ID.
	Find(ctx context.Context, id uuid.UUID) (ExamRecord, error)

	// List returns a filtered, paginated page of canonical records.
	List(ctx context.Context, filters Filters, page pagination.PageRequest) (pagination.PageResult[ExamRecord], error)

	// CountByBatch returns how many canonical records a batch produced.
	CountByBatch(ctx context.Context, batchID uuid.UUID) (int, error)

	// PromotionCounts returns the inserted/updated split of a batch's
	// canonical rows. Derived from row timestamps, so interrupted and
	// resumed runs report the same split as a single clean run.
	PromotionCounts(ctx context.Context, batchID uuid.UUID) (PromotionCounts, error)

	// DeleteByBatch removes every canonical record produced by a batch.
	DeleteByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)

	// Unpriced returns the unpriced value report, optionally scoped to one
	// period reference.
	Unpriced(ctx context.Context, periodReference string) ([]UnpricedGroup, error)

	// ForRule streams a chunk of canonical records matching the scope of a
	// targeted rule invocation, ordered by ID, starting after the given
	// cursor. A non-nil batchID narrows the scope to one upload batch;
	// empty sources means every channel.
	ForRule(ctx context.Context, scope RuleScope, after uuid.UUID, limit int) ([]ExamRecord, error)

	// Save overwrites the mutable exam attributes of a canonical record.
	Save(ctx context.Context, rec *ExamRecord) error

	// Delete removes a single canonical record. Used by targeted rule
	// invocations whose rule rejects an already committed record.
	Delete(ctx context.Context, id uuid.UUID) error
}
