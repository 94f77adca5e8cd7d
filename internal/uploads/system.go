package uploads

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/pkg/pagination"
)

// System defines the upload batch tracking operations.
type System interface {
	// Create registers a new batch in the pending state.
	Create(ctx context.Context, cmd CreateCommand) (Batch, error)

	// Find retrieves a batch by ID.
	Find(ctx context.Context, id uuid.UUID) (Batch, error)

	// List returns a filtered, paginated page of batches, newest first.
	List(ctx context.Context, filters Filters, page pagination.PageRequest) (pagination.PageResult[Batch], error)

	// Transition moves a batch along a legal state machine edge. The update
	// is guarded on the expected current status; a concurrent mutation or an
	// illegal edge yields ErrInvalidTransition.
	Transition(ctx context.Context, id uuid.UUID, from, to Status) error

	// UpdateCounters overwrites the batch progress counters with reconciled
	// values computed from the staged and canonical tables.
	UpdateCounters(ctx context.Context, id uuid.UUID, c Counters) error

	// MarkError records the failing stage and moves the batch to error.
	MarkError(ctx context.Context, id uuid.UUID, detail ErrorDetail) error

	// MarkCompleted moves the batch to completed and stamps completed_at.
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// Reset returns a terminal batch to pending with zeroed counters so the
	// pipeline can pick it up again.
	Reset(ctx context.Context, id uuid.UUID) (Batch, error)

	// MarkRolledBack records that a batch's records were purged.
	MarkRolledBack(ctx context.Context, id uuid.UUID) error

	// Stale returns batches in any of the given statuses whose last update
	// is older than the cutoff, oldest first.
	Stale(ctx context.Context, statuses []Status, updatedBefore time.Time) ([]Batch, error)
}
