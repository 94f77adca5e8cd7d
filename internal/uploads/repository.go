package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/pkg/pagination"
	"github.com/tbessa/volumetry/pkg/query"
	"github.com/tbessa/volumetry/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an upload batch repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "uploads"),
	}
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (Batch, error) {
	if !cmd.SourceType.Valid() {
		return Batch{}, fmt.Errorf("%w: %s", ErrInvalidSource, cmd.SourceType)
	}

	id := cmd.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	q := fmt.Sprintf(`
		INSERT INTO upload_batches (id, file_name, source_type, period_reference, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, batchColumns)

	b, err := repository.QueryOne(ctx, r.db, q,
		[]any{id, cmd.FileName, string(cmd.SourceType), cmd.PeriodReference, string(StatusPending)},
		scanBatch,
	)
	if err != nil {
		return Batch{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("upload batch created",
		"id", b.ID,
		"file_name", b.FileName,
		"source_type", b.SourceType,
		"period_reference", b.PeriodReference,
	)
	return b, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (Batch, error) {
	qb := query.NewBuilder(projection)
	sqlText, args := qb.BuildSingle("ID", id)

	b, err := repository.QueryOne(ctx, r.db, sqlText, args, scanBatch)
	if err != nil {
		return Batch{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return b, nil
}

func (r *repo) List(ctx context.Context, filters Filters, page pagination.PageRequest) (pagination.PageResult[Batch], error) {
	qb := filters.Apply(query.NewBuilder(projection, defaultSort)).
		WhereSearch(page.Search, "FileName", "PeriodReference").
		OrderByFields(page.Sort)

	countSQL, countArgs := qb.BuildCount()

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return pagination.PageResult[Batch]{}, fmt.Errorf("count upload batches: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	batches, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanBatch)
	if err != nil {
		return pagination.PageResult[Batch]{}, fmt.Errorf("query upload batches: %w", err)
	}

	return pagination.NewPageResult(batches, total, page.Page, page.PageSize), nil
}

func (r *repo) Transition(ctx context.Context, id uuid.UUID, from, to Status) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE upload_batches
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.transitionConflict(ctx, id, from, to)
		}
		return fmt.Errorf("transition upload batch: %w", err)
	}

	r.logger.Info("upload batch transitioned", "id", id, "from", from, "to", to)
	return nil
}

// transitionConflict distinguishes a missing batch from one whose status moved
// underneath the caller.
func (r *repo) transitionConflict(ctx context.Context, id uuid.UUID, from, to Status) error {
	b, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: expected %s, batch is %s (target %s)",
		ErrInvalidTransition, from, b.Status, to)
}

func (r *repo) UpdateCounters(ctx context.Context, id uuid.UUID, c Counters) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE upload_batches
		SET records_processed = $1, records_inserted = $2,
			records_updated = $3, records_rejected = $4,
			updated_at = NOW()
		WHERE id = $5`,
		c.Processed, c.Inserted, c.Updated, c.Rejected, id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) MarkError(ctx context.Context, id uuid.UUID, detail ErrorDetail) error {
	if detail.OccurredAt.IsZero() {
		detail.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal error detail: %w", err)
	}

	err = repository.ExecExpectOne(ctx, r.db, `
		UPDATE upload_batches
		SET status = $1, error_detail = $2, updated_at = NOW()
		WHERE id = $3 AND status NOT IN ($4, $5)`,
		string(StatusError), payload, id,
		string(StatusCompleted), string(StatusRollbackExecuted),
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Error("upload batch failed",
		"id", id,
		"stage", detail.Stage,
		"message", detail.Message,
	)
	return nil
}

func (r *repo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE upload_batches
		SET status = $1, error_detail = NULL, completed_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)`,
		string(StatusCompleted), id,
		string(StatusProcessing), string(StatusError),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.transitionConflict(ctx, id, StatusProcessing, StatusCompleted)
		}
		return fmt.Errorf("complete upload batch: %w", err)
	}

	r.logger.Info("upload batch completed", "id", id)
	return nil
}

func (r *repo) Reset(ctx context.Context, id uuid.UUID) (Batch, error) {
	b, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Batch, error) {
		current, err := repository.QueryOne(ctx, tx,
			fmt.Sprintf("SELECT %s FROM upload_batches WHERE id = $1 FOR UPDATE", batchColumns),
			[]any{id}, scanBatch,
		)
		if err != nil {
			return Batch{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		if !current.Status.CanTransition(StatusPending) {
			return Batch{}, fmt.Errorf("%w: %s to %s",
				ErrInvalidTransition, current.Status, StatusPending)
		}

		q := fmt.Sprintf(`
			UPDATE upload_batches
			SET status = $1,
				records_processed = 0, records_inserted = 0,
				records_updated = 0, records_rejected = 0,
				error_detail = NULL, completed_at = NULL,
				updated_at = NOW()
			WHERE id = $2
			RETURNING %s`, batchColumns)

		return repository.QueryOne(ctx, tx, q, []any{string(StatusPending), id}, scanBatch)
	})
	if err != nil {
		return Batch{}, err
	}

	r.logger.Info("upload batch reset", "id", id)
	return b, nil
}

func (r *repo) MarkRolledBack(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE upload_batches
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4, $5)`,
		string(StatusRollbackExecuted), id,
		string(StatusCompleted), string(StatusError), string(StatusCancelled),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.transitionConflict(ctx, id, StatusCompleted, StatusRollbackExecuted)
		}
		return fmt.Errorf("mark upload batch rolled back: %w", err)
	}

	r.logger.Info("upload batch rolled back", "id", id)
	return nil
}

func (r *repo) Stale(ctx context.Context, statuses []Status, updatedBefore time.Time) ([]Batch, error) {
	if len(statuses) == 0 {
		return []Batch{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, string(s))
	}
	args = append(args, updatedBefore)

	q := fmt.Sprintf(`
		SELECT %s FROM upload_batches
		WHERE status IN (%s) AND updated_at < $%d
		ORDER BY updated_at`,
		batchColumns, strings.Join(placeholders, ", "), len(statuses)+1)

	batches, err := repository.QueryMany(ctx, r.db, q, args, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("query stale upload batches: %w", err)
	}
	return batches, nil
}
