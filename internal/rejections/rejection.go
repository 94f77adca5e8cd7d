// Package rejections implements the rejected-record store. A rejection holds
// the original raw payload and a structured reason; rows are immutable once
// written and are only removed in bulk by retention policy.
package rejections

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Rejection is one exam record that irrecoverably failed a rule.
type Rejection struct {
	ID            uuid.UUID       `json:"id"`
	UploadBatchID uuid.UUID       `json:"upload_batch_id"`
	Stage         string          `json:"stage"`
	Rule          string          `json:"rule"`
	Reason        string          `json:"reason"`
	RawPayload    json.RawMessage `json:"raw_payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Command carries the data needed to record a rejection.
type Command struct {
	UploadBatchID uuid.UUID
	Stage         string
	Rule          string
	Reason        string
	RawPayload    json.RawMessage
}
