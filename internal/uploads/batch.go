// Package uploads implements the upload state tracker: one durable row per
// ingestion job, carrying file identity, declared period, processing counters,
// and a guarded status state machine mutated only by the pipeline phases and
// the watchdog.
package uploads

import (
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/vocab"
)

// Status is the lifecycle state of an upload batch.
type Status string

const (
	StatusPending          Status = "pending"
	StatusProcessing       Status = "processing"
	StatusStagingCompleted Status = "staging_completed"
	StatusCompleted        Status = "completed"
	StatusError            Status = "error"
	StatusCancelled        Status = "cancelled"
	StatusRollbackExecuted Status = "rollback_executed"
)

// transitions enumerates the legal state machine edges. The administrative
// reset (back to pending) and the error edge from any non-terminal state are
// encoded here rather than special-cased.
var transitions = map[Status][]Status{
	StatusPending:          {StatusProcessing, StatusError},
	StatusProcessing:       {StatusStagingCompleted, StatusCompleted, StatusError, StatusCancelled},
	StatusStagingCompleted: {StatusProcessing, StatusError, StatusCancelled},
	StatusCompleted:        {StatusRollbackExecuted},
	StatusError:            {StatusCompleted, StatusRollbackExecuted, StatusPending},
	StatusCancelled:        {StatusRollbackExecuted, StatusPending},
	StatusRollbackExecuted: {StatusPending},
}

// Terminal reports whether no further pipeline processing occurs in this state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled, StatusRollbackExecuted:
		return true
	}
	return false
}

// CanTransition reports whether the edge s → to is legal.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrorDetail records the failing stage of a batch that entered the error state.
type ErrorDetail struct {
	Stage      string    `json:"stage"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Batch is one ingestion job.
type Batch struct {
	ID               uuid.UUID        `json:"id"`
	FileName         string           `json:"file_name"`
	SourceType       vocab.SourceType `json:"source_type"`
	PeriodReference  string           `json:"period_reference"`
	Status           Status           `json:"status"`
	RecordsProcessed int              `json:"records_processed"`
	RecordsInserted  int              `json:"records_inserted"`
	RecordsUpdated   int              `json:"records_updated"`
	RecordsRejected  int              `json:"records_rejected"`
	ErrorDetail      *ErrorDetail     `json:"error_detail,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// ExpectedCanonicalCount returns the number of canonical rows this batch
// should have produced, used by the watchdog to reconcile batches whose
// status was misclassified by a transient failure.
func (b *Batch) ExpectedCanonicalCount() int {
	if n := b.RecordsInserted + b.RecordsUpdated; n > 0 {
		return n
	}
	return b.RecordsProcessed - b.RecordsRejected
}

// CreateCommand carries the data needed to register a new upload batch.
type CreateCommand struct {
	ID              uuid.UUID
	FileName        string
	SourceType      vocab.SourceType
	PeriodReference string
}

// Counters is the set of per-batch progress counters.
type Counters struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Rejected  int `json:"rejected"`
}
