package uploads

import (
	"encoding/json"
	"net/url"

	"github.com/tbessa/volumetry/pkg/query"
	"github.com/tbessa/volumetry/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "upload_batches", "b").
	Project("id", "ID").
	Project("file_name", "FileName").
	Project("source_type", "SourceType").
	Project("period_reference", "PeriodReference").
	Project("status", "Status").
	Project("records_processed", "RecordsProcessed").
	Project("records_inserted", "RecordsInserted").
	Project("records_updated", "RecordsUpdated").
	Project("records_rejected", "RecordsRejected").
	Project("error_detail", "ErrorDetail").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for batch queries.
// Nil fields are ignored. FileName uses case-insensitive contains matching.
type Filters struct {
	Status          *string `json:"status,omitempty"`
	SourceType      *string `json:"source_type,omitempty"`
	PeriodReference *string `json:"period_reference,omitempty"`
	FileName        *string `json:"file_name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("SourceType", f.SourceType).
		WhereEquals("PeriodReference", f.PeriodReference).
		WhereContains("FileName", f.FileName)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}
	if st := values.Get("source_type"); st != "" {
		f.SourceType = &st
	}
	if p := values.Get("period_reference"); p != "" {
		f.PeriodReference = &p
	}
	if fn := values.Get("file_name"); fn != "" {
		f.FileName = &fn
	}

	return f
}

func scanBatch(s repository.Scanner) (Batch, error) {
	var (
		b      Batch
		detail []byte
	)

	err := s.Scan(
		&b.ID,
		&b.FileName,
		&b.SourceType,
		&b.PeriodReference,
		&b.Status,
		&b.RecordsProcessed,
		&b.RecordsInserted,
		&b.RecordsUpdated,
		&b.RecordsRejected,
		&detail,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.CompletedAt,
	)
	if err != nil {
		return b, err
	}

	if len(detail) > 0 {
		var ed ErrorDetail
		if err := json.Unmarshal(detail, &ed); err != nil {
			return b, err
		}
		b.ErrorDetail = &ed
	}

	return b, nil
}

const batchColumns = `id, file_name, source_type, period_reference, status,
	records_processed, records_inserted, records_updated, records_rejected,
	error_detail, created_at, updated_at, completed_at`
