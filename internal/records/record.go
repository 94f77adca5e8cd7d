// Package records implements the canonical exam record store. Rows land here
// only through promotion of ruled staged records; the commit is an upsert on
// the record identity so re-running a batch converges instead of duplicating.
package records

import (
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/vocab"
)

// ExamRecord is one committed billable exam event.
type ExamRecord struct {
	ID            uuid.UUID   `json:"id"`
	UploadBatchID uuid.UUID   `json:"upload_batch_id"`
	Exam          exam.Record `json:"exam"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// CommitResult reports the outcome of promoting one chunk of ruled records.
type CommitResult struct {
	Inserted int
	Updated  int
}

// PromotionCounts is the inserted/updated split of a batch's canonical rows,
// derived from row timestamps: a fresh insert leaves created_at and updated_at
// equal, a conflict update advances updated_at.
type PromotionCounts struct {
	Inserted int
	Updated  int
}

// RuleScope narrows a targeted rule invocation to a slice of the canonical
// store.
type RuleScope struct {
	PeriodReference string
	Sources         []vocab.SourceType
	BatchID         uuid.UUID
}

// UnpricedGroup is one row of the unpriced value report: committed records
// that reached the canonical store without a resolved unit price, grouped by
// the attributes a pricing analyst needs to fill the gap.
type UnpricedGroup struct {
	ClientName       string `json:"client_name"`
	StudyDescription string `json:"study_description"`
	Modality         string `json:"modality"`
	PeriodReference  string `json:"period_reference"`
	Count            int    `json:"count"`
}
