package uploads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CanonicalCounter reports how many canonical exam records a batch produced.
// Satisfied by the records system.
type CanonicalCounter interface {
	CountByBatch(ctx context.Context, batchID uuid.UUID) (int, error)
}

// SweepConfig holds the thresholds for a watchdog pass.
type SweepConfig struct {
	// Soft is the inactivity window after which a batch is inspected and
	// reconciled against its canonical record count.
	Soft time.Duration

	// Hard is the inactivity window after which a stuck batch is cancelled
	// regardless of its contents.
	Hard time.Duration
}

// SweepResult summarizes one watchdog pass.
type SweepResult struct {
	Inspected int `json:"inspected"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// Watchdog reconciles batches abandoned mid-flight: a crashed worker leaves
// its batch in processing or staging_completed forever, and a transient
// failure after the commit phase can leave a fully persisted batch marked
// error. Sweeps are idempotent; each pass only touches batches that still
// match the stale criteria.
type Watchdog struct {
	uploads System
	records CanonicalCounter
	cfg     SweepConfig
	logger  *slog.Logger
}

// NewWatchdog creates a watchdog over the given upload and canonical systems.
func NewWatchdog(uploads System, records CanonicalCounter, cfg SweepConfig, logger *slog.Logger) *Watchdog {
	if cfg.Soft <= 0 {
		cfg.Soft = 10 * time.Minute
	}
	if cfg.Hard <= cfg.Soft {
		cfg.Hard = 2 * time.Hour
	}
	return &Watchdog{
		uploads: uploads,
		records: records,
		cfg:     cfg,
		logger:  logger.With("system", "watchdog"),
	}
}

// Sweep runs one reconciliation pass and returns what it changed.
func (w *Watchdog) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := time.Now().UTC()

	stale, err := w.uploads.Stale(ctx,
		[]Status{StatusProcessing, StatusStagingCompleted, StatusError},
		now.Add(-w.cfg.Soft),
	)
	if err != nil {
		return result, fmt.Errorf("query stale batches: %w", err)
	}

	for _, b := range stale {
		result.Inspected++

		reconciled, err := w.reconcile(ctx, b)
		if err != nil {
			w.logger.Error("reconcile failed", "id", b.ID, "error", err)
			continue
		}
		if reconciled {
			result.Completed++
			continue
		}

		if b.Status != StatusError && now.Sub(b.UpdatedAt) >= w.cfg.Hard {
			if err := w.cancel(ctx, b); err != nil {
				w.logger.Error("cancel failed", "id", b.ID, "error", err)
				continue
			}
			result.Cancelled++
		}
	}

	if result.Completed > 0 || result.Cancelled > 0 {
		w.logger.Info("watchdog sweep",
			"inspected", result.Inspected,
			"completed", result.Completed,
			"cancelled", result.Cancelled,
		)
	}
	return result, nil
}

// reconcile promotes a stale batch to completed when its canonical records
// fully landed despite the recorded status.
func (w *Watchdog) reconcile(ctx context.Context, b Batch) (bool, error) {
	expected := b.ExpectedCanonicalCount()
	if expected <= 0 {
		return false, nil
	}

	count, err := w.records.CountByBatch(ctx, b.ID)
	if err != nil {
		return false, fmt.Errorf("count canonical records: %w", err)
	}
	if count < expected {
		return false, nil
	}

	if err := w.uploads.MarkCompleted(ctx, b.ID); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return false, nil
		}
		return false, err
	}

	w.logger.Info("stale batch reconciled to completed",
		"id", b.ID,
		"status_was", b.Status,
		"canonical_count", count,
	)
	return true, nil
}

func (w *Watchdog) cancel(ctx context.Context, b Batch) error {
	if err := w.uploads.Transition(ctx, b.ID, b.Status, StatusCancelled); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return err
	}

	w.logger.Warn("stuck batch cancelled",
		"id", b.ID,
		"status_was", b.Status,
		"stale_for", time.Since(b.UpdatedAt).Round(time.Second).String(),
	)
	return nil
}
