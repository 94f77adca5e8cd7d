package records

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/staging"
	"github.com/tbessa/volumetry/pkg/pagination"
	"github.com/tbessa/volumetry/pkg/query"
	"github.com/tbessa/volumetry/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a canonical record repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "records"),
	}
}

// upsertColumnCount matches the column list in buildCommitUpsert.
const upsertColumnCount = 17

// Commit upserts one chunk atomically: canonical rows land and their staged
// sources flip to promoted in the same transaction, so a crash between the
// two can never happen and a re-run of the chunk converges on the same rows.
func (r *repo) Commit(ctx context.Context, batchID uuid.UUID, recs []staging.Record) (CommitResult, error) {
	if len(recs) == 0 {
		return CommitResult{}, nil
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (CommitResult, error) {
		stmt, args := buildCommitUpsert(batchID, recs)

		rows, err := tx.QueryContext(ctx, stmt, args...)
		if err != nil {
			return CommitResult{}, fmt.Errorf("upsert canonical records: %w", err)
		}
		defer rows.Close()

		var res CommitResult
		for rows.Next() {
			var inserted bool
			if err := rows.Scan(&inserted); err != nil {
				return CommitResult{}, err
			}
			if inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
		}
		if err := rows.Err(); err != nil {
			return CommitResult{}, err
		}
		rows.Close()

		promoteStmt, promoteArgs := buildPromoteUpdate(recs)
		if _, err := repository.ExecCount(ctx, tx, promoteStmt, promoteArgs...); err != nil {
			return CommitResult{}, fmt.Errorf("mark staged records promoted: %w", err)
		}

		return res, nil
	})
	if err != nil {
		return CommitResult{}, err
	}

	r.logger.Info("chunk committed",
		"batch_id", batchID,
		"inserted", result.Inserted,
		"updated", result.Updated,
	)
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (ExamRecord, error) {
	qb := query.NewBuilder(projection)
	sqlText, args := qb.BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, sqlText, args, scanExamRecord)
	if err != nil {
		return ExamRecord{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return rec, nil
}

func (r *repo) List(ctx context.Context, filters Filters, page pagination.PageRequest) (pagination.PageResult[ExamRecord], error) {
	qb := filters.Apply(query.NewBuilder(projection, defaultSort)).
		WhereSearch(page.Search, "ClientName", "PatientName", "StudyDescription").
		OrderByFields(page.Sort)

	countSQL, countArgs := qb.BuildCount()

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return pagination.PageResult[ExamRecord]{}, fmt.Errorf("count exam records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	recs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanExamRecord)
	if err != nil {
		return pagination.PageResult[ExamRecord]{}, fmt.Errorf("query exam records: %w", err)
	}

	return pagination.NewPageResult(recs, total, page.Page, page.PageSize), nil
}

func (r *repo) CountByBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM exam_records WHERE upload_batch_id = $1",
		batchID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count exam records by batch: %w", err)
	}
	return count, nil
}

func (r *repo) PromotionCounts(ctx context.Context, batchID uuid.UUID) (PromotionCounts, error) {
	var counts PromotionCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE updated_at = created_at),
			COUNT(*) FILTER (WHERE updated_at > created_at)
		FROM exam_records WHERE upload_batch_id = $1`,
		batchID,
	).Scan(&counts.Inserted, &counts.Updated)
	if err != nil {
		return PromotionCounts{}, fmt.Errorf("count promoted records by batch: %w", err)
	}
	return counts, nil
}

func (r *repo) DeleteByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	n, err := repository.ExecCount(ctx, r.db,
		"DELETE FROM exam_records WHERE upload_batch_id = $1",
		batchID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete exam records by batch: %w", err)
	}

	r.logger.Info("canonical records purged", "batch_id", batchID, "count", n)
	return n, nil
}

func (r *repo) Unpriced(ctx context.Context, periodReference string) ([]UnpricedGroup, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT client_name, study_description, modality, period_reference, COUNT(*)
		FROM exam_records
		WHERE unit_value_cents IS NULL`)

	args := make([]any, 0, 1)
	if periodReference != "" {
		sb.WriteString(" AND period_reference = $1")
		args = append(args, periodReference)
	}
	sb.WriteString(`
		GROUP BY client_name, study_description, modality, period_reference
		ORDER BY COUNT(*) DESC, client_name, study_description`)

	groups, err := repository.QueryMany(ctx, r.db, sb.String(), args,
		func(s repository.Scanner) (UnpricedGroup, error) {
			var g UnpricedGroup
			err := s.Scan(&g.ClientName, &g.StudyDescription, &g.Modality, &g.PeriodReference, &g.Count)
			return g, err
		})
	if err != nil {
		return nil, fmt.Errorf("query unpriced report: %w", err)
	}
	return groups, nil
}

func (r *repo) ForRule(ctx context.Context, scope RuleScope, after uuid.UUID, limit int) ([]ExamRecord, error) {
	args := []any{scope.PeriodReference, after}
	extra := ""

	if len(scope.Sources) > 0 {
		placeholders := make([]string, len(scope.Sources))
		for i, s := range scope.Sources {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, string(s))
		}
		extra = fmt.Sprintf(" AND source_type IN (%s)", strings.Join(placeholders, ", "))
	}

	if scope.BatchID != uuid.Nil {
		args = append(args, scope.BatchID)
		extra += fmt.Sprintf(" AND upload_batch_id = $%d", len(args))
	}

	q := fmt.Sprintf(`
		SELECT %s FROM exam_records
		WHERE period_reference = $1 AND id > $2%s
		ORDER BY id
		LIMIT %d`, recordColumns, extra, limit)

	recs, err := repository.QueryMany(ctx, r.db, q, args, scanExamRecord)
	if err != nil {
		return nil, fmt.Errorf("query records for rule: %w", err)
	}
	return recs, nil
}

func (r *repo) Save(ctx context.Context, rec *ExamRecord) error {
	const q = `
		UPDATE exam_records
		SET client_name = $1, patient_name = $2, study_description = $3,
			modality = $4, specialty = $5, category = $6, priority = $7,
			unit_value_cents = $8, billing_type = $9, updated_at = NOW()
		WHERE id = $10`

	err := repository.ExecExpectOne(ctx, r.db, q,
		rec.Exam.ClientName,
		rec.Exam.PatientName,
		rec.Exam.StudyDescription,
		rec.Exam.Modality,
		rec.Exam.Specialty,
		rec.Exam.Category,
		rec.Exam.Priority,
		rec.Exam.UnitValueCents,
		string(rec.Exam.BillingType),
		rec.ID,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db,
		"DELETE FROM exam_records WHERE id = $1", id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

// buildCommitUpsert renders a multi-row upsert keyed on the record identity.
// xmax = 0 distinguishes a fresh insert from a conflict update.
func buildCommitUpsert(batchID uuid.UUID, recs []staging.Record) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO exam_records (
		id, upload_batch_id, client_name, patient_name, study_description,
		modality, specialty, category, priority,
		realization_date, realization_time, report_date, report_time,
		unit_value_cents, billing_type, source_type, period_reference
	) VALUES `)

	args := make([]any, 0, len(recs)*upsertColumnCount)
	for i := range recs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < upsertColumnCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*upsertColumnCount+j+1)
		}
		sb.WriteString(")")

		e := &recs[i].Exam
		args = append(args,
			uuid.New(),
			batchID,
			e.ClientName,
			e.PatientName,
			e.StudyDescription,
			e.Modality,
			e.Specialty,
			e.Category,
			e.Priority,
			e.RealizationDate,
			e.RealizationTime,
			e.ReportDate,
			e.ReportTime,
			e.UnitValueCents,
			string(e.BillingType),
			string(e.SourceType),
			e.PeriodReference,
		)
	}

	sb.WriteString(`
		ON CONFLICT (client_name, patient_name, study_description, modality,
			realization_date, realization_time, source_type, period_reference)
		DO UPDATE SET
			upload_batch_id = EXCLUDED.upload_batch_id,
			specialty = EXCLUDED.specialty,
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			report_date = EXCLUDED.report_date,
			report_time = EXCLUDED.report_time,
			unit_value_cents = EXCLUDED.unit_value_cents,
			billing_type = EXCLUDED.billing_type,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted`)

	return sb.String(), args
}

func buildPromoteUpdate(recs []staging.Record) (string, []any) {
	placeholders := make([]string, len(recs))
	args := make([]any, 0, len(recs)+1)
	args = append(args, string(staging.StatusPromoted))
	for i := range recs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, recs[i].ID)
	}

	stmt := fmt.Sprintf(
		"UPDATE staged_records SET status = $1, updated_at = NOW() WHERE id IN (%s)",
		strings.Join(placeholders, ", "),
	)
	return stmt, args
}
