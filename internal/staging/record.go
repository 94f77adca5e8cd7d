// Package staging implements the raw record store: one row per uploaded exam
// record, owned by its upload batch until promotion to the canonical store.
package staging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/exam"
)

// Status is the per-record processing status within the staging store.
type Status string

const (
	// StatusPending marks a freshly staged record awaiting rule application.
	StatusPending Status = "pending"
	// StatusRuled marks a record that passed the rule engine, splitting, and
	// pricing, and is ready for promotion.
	StatusRuled Status = "ruled"
	// StatusPromoted marks a record already committed to the canonical store.
	StatusPromoted Status = "promoted"
	// StatusRejected marks a record diverted to the rejection store.
	StatusRejected Status = "rejected"
)

// Record is one staged exam record.
type Record struct {
	ID            uuid.UUID       `json:"id"`
	UploadBatchID uuid.UUID       `json:"upload_batch_id"`
	ParentID      *uuid.UUID      `json:"parent_id,omitempty"`
	Exam          exam.Record     `json:"exam"`
	Status        Status          `json:"status"`
	RawRow        json.RawMessage `json:"raw_row,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StatusCounts summarizes a batch's staged records by status.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Ruled    int `json:"ruled"`
	Promoted int `json:"promoted"`
	Rejected int `json:"rejected"`
}

// Total returns the total number of staged rows across all statuses.
func (c StatusCounts) Total() int {
	return c.Pending + c.Ruled + c.Promoted + c.Rejected
}
