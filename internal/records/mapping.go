package records

import (
	"net/url"

	"github.com/tbessa/volumetry/pkg/query"
	"github.com/tbessa/volumetry/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "exam_records", "e").
	Project("id", "ID").
	Project("upload_batch_id", "UploadBatchID").
	Project("client_name", "ClientName").
	Project("patient_name", "PatientName").
	Project("study_description", "StudyDescription").
	Project("modality", "Modality").
	Project("specialty", "Specialty").
	Project("category", "Category").
	Project("priority", "Priority").
	Project("realization_date", "RealizationDate").
	Project("realization_time", "RealizationTime").
	Project("report_date", "ReportDate").
	Project("report_time", "ReportTime").
	Project("unit_value_cents", "UnitValueCents").
	Project("billing_type", "BillingType").
	Project("source_type", "SourceType").
	Project("period_reference", "PeriodReference").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "RealizationDate", Descending: true}

// Filters contains optional filtering criteria for canonical record queries.
type Filters struct {
	ClientName      *string `json:"client_name,omitempty"`
	Modality        *string `json:"modality,omitempty"`
	SourceType      *string `json:"source_type,omitempty"`
	PeriodReference *string `json:"period_reference,omitempty"`
	Unpriced        bool    `json:"unpriced,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b = b.
		WhereContains("ClientName", f.ClientName).
		WhereEquals("Modality", f.Modality).
		WhereEquals("SourceType", f.SourceType).
		WhereEquals("PeriodReference", f.PeriodReference)

	if f.Unpriced {
		b = b.WhereNull("UnitValueCents")
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("client_name"); c != "" {
		f.ClientName = &c
	}
	if m := values.Get("modality"); m != "" {
		f.Modality = &m
	}
	if s := values.Get("source_type"); s != "" {
		f.SourceType = &s
	}
	if p := values.Get("period_reference"); p != "" {
		f.PeriodReference = &p
	}
	f.Unpriced = values.Get("unpriced") == "true"

	return f
}

func scanExamRecord(s repository.Scanner) (ExamRecord, error) {
	var r ExamRecord

	err := s.Scan(
		&r.ID,
		&r.UploadBatchID,
		&r.Exam.ClientName,
		&r.Exam.PatientName,
		&r.Exam.StudyDescription,
		&r.Exam.Modality,
		&r.Exam.Specialty,
		&r.Exam.Category,
		&r.Exam.Priority,
		&r.Exam.RealizationDate,
		&r.Exam.RealizationTime,
		&r.Exam.ReportDate,
		&r.Exam.ReportTime,
		&r.Exam.UnitValueCents,
		&r.Exam.BillingType,
		&r.Exam.SourceType,
		&r.Exam.PeriodReference,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const recordColumns = `id, upload_batch_id, client_name, patient_name,
	study_description, modality, specialty, category, priority,
	realization_date, realization_time, report_date, report_time,
	unit_value_cents, billing_type, source_type, period_reference,
	created_at, updated_at`
