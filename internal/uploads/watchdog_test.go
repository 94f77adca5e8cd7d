package uploads_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/uploads"
	"github.com/tbessa/volumetry/pkg/pagination"
)

type fakeUploads struct {
	stale       []uploads.Batch
	completed   []uuid.UUID
	cancelled   []uuid.UUID
	completeErr error
}

func (f *fakeUploads) Create(ctx context.Context, cmd uploads.CreateCommand) (uploads.Batch, error) {
	return uploads.Batch{}, nil
}

func (f *fakeUploads) Find(ctx context.Context, id uuid.UUID) (uploads.Batch, error) {
	return uploads.Batch{}, uploads.ErrNotFound
}

func (f *fakeUploads) List(ctx context.Context, filters uploads.Filters, page pagination.PageRequest) (pagination.PageResult[uploads.Batch], error) {
	return pagination.PageResult[uploads.Batch]{}, nil
}

func (f *fakeUploads) Transition(ctx context.Context, id uuid.UUID, from, to uploads.Status) error {
	if to == uploads.StatusCancelled {
		f.cancelled = append(f.cancelled, id)
	}
	return nil
}

func (f *fakeUploads) UpdateCounters(ctx context.Context, id uuid.UUID, c uploads.Counters) error {
	return nil
}

func (f *fakeUploads) MarkError(ctx context.Context, id uuid.UUID, detail uploads.ErrorDetail) error {
	return nil
}

func (f *fakeUploads) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeUploads) Reset(ctx context.Context, id uuid.UUID) (uploads.Batch, error) {
	return uploads.Batch{}, nil
}

func (f *fakeUploads) MarkRolledBack(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeUploads) Stale(ctx context.Context, statuses []uploads.Status, updatedBefore time.Time) ([]uploads.Batch, error) {
	return f.stale, nil
}

type fakeCounter struct {
	counts map[uuid.UUID]int
}

func (f *fakeCounter) CountByBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	return f.counts[batchID], nil
}

func staleBatch(status uploads.Status, age time.Duration, processed, rejected int) uploads.Batch {
	return uploads.Batch{
		ID:               uuid.New(),
		Status:           status,
		RecordsProcessed: processed,
		RecordsRejected:  rejected,
		UpdatedAt:        time.Now().UTC().Add(-age),
	}
}

func newWatchdog(sys *fakeUploads, counts *fakeCounter) *uploads.Watchdog {
	return uploads.NewWatchdog(sys, counts, uploads.SweepConfig{
		Soft: 10 * time.Minute,
		Hard: 2 * time.Hour,
	}, slog.Default())
}

func TestSweepReconcilesLandedBatch(t *testing.T) {
	b := staleBatch(uploads.StatusError, 30*time.Minute, 100, 10)
	sys := &fakeUploads{stale: []uploads.Batch{b}}
	counts := &fakeCounter{counts: map[uuid.UUID]int{b.ID: 90}}

	result, err := newWatchdog(sys, counts).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.Completed != 1 || result.Cancelled != 0 {
		t.Errorf("got %+v, want 1 completed", result)
	}
	if len(sys.completed) != 1 || sys.completed[0] != b.ID {
		t.Errorf("expected MarkCompleted for %v, got %v", b.ID, sys.completed)
	}
}

func TestSweepCancelsStuckBatch(t *testing.T) {
	b := staleBatch(uploads.StatusProcessing, 3*time.Hour, 100, 10)
	sys := &fakeUploads{stale: []uploads.Batch{b}}
	counts := &fakeCounter{counts: map[uuid.UUID]int{b.ID: 20}}

	result, err := newWatchdog(sys, counts).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.Cancelled != 1 || result.Completed != 0 {
		t.Errorf("got %+v, want 1 cancelled", result)
	}
	if len(sys.cancelled) != 1 {
		t.Errorf("expected cancel transition, got %v", sys.cancelled)
	}
}

func TestSweepLeavesRecentStaleBatchAlone(t *testing.T) {
	b := staleBatch(uploads.StatusProcessing, 30*time.Minute, 100, 10)
	sys := &fakeUploads{stale: []uploads.Batch{b}}
	counts := &fakeCounter{counts: map[uuid.UUID]int{b.ID: 20}}

	result, err := newWatchdog(sys, counts).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.Inspected != 1 || result.Completed != 0 || result.Cancelled != 0 {
		t.Errorf("got %+v, want inspection only", result)
	}
}

func TestSweepNeverCancelsErrorBatch(t *testing.T) {
	b := staleBatch(uploads.StatusError, 5*time.Hour, 100, 10)
	sys := &fakeUploads{stale: []uploads.Batch{b}}
	counts := &fakeCounter{counts: map[uuid.UUID]int{b.ID: 0}}

	result, err := newWatchdog(sys, counts).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.Cancelled != 0 {
		t.Errorf("error batch must not be cancelled: %+v", result)
	}
}

func TestSweepSkipsBatchWithNothingExpected(t *testing.T) {
	b := staleBatch(uploads.StatusProcessing, 3*time.Hour, 0, 0)
	sys := &fakeUploads{stale: []uploads.Batch{b}}
	counts := &fakeCounter{counts: map[uuid.UUID]int{}}

	result, err := newWatchdog(sys, counts).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.Completed != 0 {
		t.Errorf("nothing staged must not reconcile: %+v", result)
	}
	if result.Cancelled != 1 {
		t.Errorf("empty stuck batch past hard threshold should cancel: %+v", result)
	}
}

func TestSweepTreatsTransitionConflictAsNotReconciled(t *testing.T) {
	b := staleBatch(uploads.StatusStagingCompleted, 3*time.Hour, 100, 10)
	sys := &fakeUploads{
		stale:       []uploads.Batch{b},
		completeErr: uploads.ErrInvalidTransition,
	}
	counts := &fakeCounter{counts: map[uuid.UUID]int{b.ID: 90}}

	result, err := newWatchdog(sys, counts).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if result.Completed != 0 {
		t.Errorf("conflicted completion must not count: %+v", result)
	}
	if result.Cancelled != 1 {
		t.Errorf("unreconciled stuck batch should fall through to cancel: %+v", result)
	}
}
