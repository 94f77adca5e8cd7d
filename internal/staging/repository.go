package staging

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/vocab"

	"github.com/tbessa/volumetry/pkg/query"
	"github.com/tbessa/volumetry/pkg/repository"
)

type repo struct {
	db        *sql.DB
	logger    *slog.Logger
	chunkSize int
}

// New creates a staging repository implementing the System interface.
// chunkSize bounds the row count of bulk inserts.
func New(db *sql.DB, logger *slog.Logger, chunkSize int) System {
	if chunkSize < 1 {
		chunkSize = 500
	}
	return &repo{
		db:        db,
		logger:    logger.With("system", "staging"),
		chunkSize: chunkSize,
	}
}

func (r *repo) BulkInsert(ctx context.Context, records []Record) (int, error) {
	inserted := 0

	for start := 0; start < len(records); start += r.chunkSize {
		end := min(start+r.chunkSize, len(records))
		chunk := records[start:end]

		n, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
			stmt, args := buildBulkInsert(chunk)
			return repository.ExecCount(ctx, tx, stmt, args...)
		})
		if err != nil {
			return inserted, fmt.Errorf("bulk insert staged records: %w", err)
		}
		inserted += int(n)
	}

	r.logger.Info("records staged", "count", inserted)
	return inserted, nil
}

func (r *repo) NextChunk(ctx context.Context, batchID uuid.UUID, status Status, limit int) ([]Record, error) {
	qb := query.NewBuilder(projection, query.SortField{Field: "ID"}).
		WhereEquals("UploadBatchID", batchID).
		WhereEquals("Status", string(status))

	sqlText, args := qb.BuildPage(1, limit)

	recs, err := repository.QueryMany(ctx, r.db, sqlText, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query staged chunk: %w", err)
	}
	return recs, nil
}

func (r *repo) SaveRuled(ctx context.Context, rec *Record) error {
	const q = `
		UPDATE staged_records
		SET client_name = $1, patient_name = $2, study_description = $3,
			modality = $4, specialty = $5, category = $6, priority = $7,
			unit_value_cents = $8, billing_type = $9,
			status = $10, updated_at = NOW()
		WHERE id = $11`

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
		string(StatusRuled),
		rec.ID,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	rec.Status = StatusRuled
	return nil
}

func (r *repo) MarkRejected(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db,
		"UPDATE staged_records SET status = $1, updated_at = NOW() WHERE id = $2",
		string(StatusRejected), id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) ReplaceWithChildren(ctx context.Context, parent *Record, children []Record) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		stmt, args := buildBulkInsert(children)
		if _, err := repository.ExecCount(ctx, tx, stmt, args...); err != nil {
			return struct{}{}, fmt.Errorf("insert split children: %w", err)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM staged_records WHERE id = $1",
			parent.ID,
		); err != nil {
			return struct{}{}, fmt.Errorf("remove split parent: %w", err)
		}

		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("composite exam split",
		"parent_id", parent.ID,
		"description", parent.Exam.StudyDescription,
		"children", len(children),
	)
	return nil
}

func (r *repo) MarkPromoted(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, string(StatusPromoted))
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	stmt := fmt.Sprintf(
		"UPDATE staged_records SET status = $1, updated_at = NOW() WHERE id IN (%s)",
		strings.Join(placeholders, ", "),
	)

	if _, err := repository.ExecCount(ctx, r.db, stmt, args...); err != nil {
		return fmt.Errorf("mark promoted: %w", err)
	}
	return nil
}

func (r *repo) Counts(ctx context.Context, batchID uuid.UUID) (StatusCounts, error) {
	const q = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'ruled'),
			COUNT(*) FILTER (WHERE status = 'promoted'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM staged_records
		WHERE upload_batch_id = $1`

	var c StatusCounts
	err := r.db.QueryRowContext(ctx, q, batchID).
		Scan(&c.Pending, &c.Ruled, &c.Promoted, &c.Rejected)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("count staged records: %w", err)
	}
	return c, nil
}

func (r *repo) DeleteUncommitted(ctx context.Context, batchID uuid.UUID) (int64, error) {
	n, err := repository.ExecCount(ctx, r.db,
		"DELETE FROM staged_records WHERE upload_batch_id = $1 AND status <> $2",
		batchID, string(StatusPromoted),
	)
	if err != nil {
		return 0, fmt.Errorf("delete uncommitted staged records: %w", err)
	}
	return n, nil
}

func (r *repo) DeleteBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	n, err := repository.ExecCount(ctx, r.db,
		"DELETE FROM staged_records WHERE upload_batch_id = $1",
		batchID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete staged batch: %w", err)
	}
	return n, nil
}

func (r *repo) DeleteRealizedOnOrAfter(ctx context.Context, batchID uuid.UUID, sources []vocab.SourceType, cutoff time.Time) (int64, error) {
	qb := query.NewBuilder(projection).
		WhereEquals("UploadBatchID", batchID).
		WhereIn("SourceType", sourceArgs(sources)).
		WhereOnOrAfter("RealizationDate", cutoff)

	stmt, args, ok := qb.BuildDelete()
	if !ok {
		return 0, nil
	}

	n, err := repository.ExecCount(ctx, r.db, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete by realization cutoff: %w", err)
	}
	return n, nil
}

func (r *repo) DeleteReportedOutside(ctx context.Context, batchID uuid.UUID, sources []vocab.SourceType, start, end time.Time) (int64, error) {
	qb := query.NewBuilder(projection).
		WhereEquals("UploadBatchID", batchID).
		WhereIn("SourceType", sourceArgs(sources)).
		WhereOutsideRange("ReportDate", start, end)

	stmt, args, ok := qb.BuildDelete()
	if !ok {
		return 0, nil
	}

	n, err := repository.ExecCount(ctx, r.db, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete by report window: %w", err)
	}
	return n, nil
}

func sourceArgs(sources []vocab.SourceType) []any {
	args := make([]any, len(sources))
	for i, s := range sources {
		args[i] = string(s)
	}
	return args
}

func buildBulkInsert(records []Record) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO staged_records(")
	sb.WriteString(insertColumns)
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(records)*insertColumnCount)
	for i := range records {
		if records[i].ID == uuid.Nil {
			records[i].ID = uuid.New()
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < insertColumnCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*insertColumnCount+j+1)
		}
		sb.WriteString(")")

		args = append(args, insertArgs(&records[i])...)
	}

	return sb.String(), args
}
