package staging

import (
	"database/sql"

	"github.com/tbessa/volumetry/internal/vocab"
	"github.com/tbessa/volumetry/pkg/query"
	"github.com/tbessa/volumetry/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "staged_records", "s").
	Project("id", "ID").
	Project("upload_batch_id", "UploadBatchID").
	Project("parent_id", "ParentID").
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
	Project("status", "Status").
	Project("raw_row", "RawRow").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

func scanRecord(s repository.Scanner) (Record, error) {
	var (
		r           Record
		billingType sql.NullString
	)

	err := s.Scan(
		&r.ID,
		&r.UploadBatchID,
		&r.ParentID,
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
		&billingType,
		&r.Exam.SourceType,
		&r.Exam.PeriodReference,
		&r.Status,
		&r.RawRow,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}

	if billingType.Valid {
		r.Exam.BillingType = vocab.BillingType(billingType.String)
	}
	return r, nil
}

func insertArgs(r *Record) []any {
	var billingType any
	if r.Exam.BillingType != "" {
		billingType = string(r.Exam.BillingType)
	}

	return []any{
		r.ID,
		r.UploadBatchID,
		r.ParentID,
		r.Exam.ClientName,
		r.Exam.PatientName,
		r.Exam.StudyDescription,
		r.Exam.Modality,
		r.Exam.Specialty,
		r.Exam.Category,
		r.Exam.Priority,
		r.Exam.RealizationDate,
		r.Exam.RealizationTime,
		r.Exam.ReportDate,
		r.Exam.ReportTime,
		r.Exam.UnitValueCents,
		billingType,
		string(r.Exam.SourceType),
		r.Exam.PeriodReference,
		string(r.Status),
		r.RawRow,
	}
}

const insertColumns = `id, upload_batch_id, parent_id, client_name, patient_name,
	study_description, modality, specialty, category, priority,
	realization_date, realization_time, report_date, report_time,
	unit_value_cents, billing_type, source_type, period_reference, status, raw_row`

const insertColumnCount = 20
