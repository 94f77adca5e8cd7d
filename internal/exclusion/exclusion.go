// Package exclusion removes staged retroactive records that fall outside the
// billing scope of their batch. Its two rules are deletions, not rejections:
// the rows were validly staged but must not be billed in this period, usually
// because a non-retroactive channel already covers them.
package exclusion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/vocab"
	"github.com/tbessa/volumetry/pkg/period"
)

// Store is the slice of the staging system the filter mutates.
type Store interface {
	DeleteRealizedOnOrAfter(ctx context.Context, batchID uuid.UUID, sources []vocab.SourceType, cutoff time.Time) (int64, error)
	DeleteReportedOutside(ctx context.Context, batchID uuid.UUID, sources []vocab.SourceType, start, end time.Time) (int64, error)
}

// Config toggles the two exclusion rules independently.
type Config struct {
	// RealizationCutoffEnabled enables deletion of retroactive rows realized
	// on or after the cutoff date.
	RealizationCutoffEnabled bool `toml:"realization_cutoff_enabled"`

	// RealizationCutoff is the cutoff date, YYYY-MM-DD. Empty means the
	// start of the batch's billing window.
	RealizationCutoff string `toml:"realization_cutoff"`

	// ReportWindowEnabled enables deletion of retroactive rows reported
	// outside the billing window.
	ReportWindowEnabled bool `toml:"report_window_enabled"`
}

// Result reports how many rows each rule removed.
type Result struct {
	ByRealizationDate int64 `json:"by_realization_date"`
	ByReportDate      int64 `json:"by_report_date"`
}

// Total returns the combined number of deleted rows.
func (r Result) Total() int64 {
	return r.ByRealizationDate + r.ByReportDate
}

// Filter applies the exclusion rules to one batch's staged records.
type Filter struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

// New creates an exclusion filter over the staging store.
func New(store Store, cfg Config, logger *slog.Logger) *Filter {
	return &Filter{
		store:  store,
		cfg:    cfg,
		logger: logger.With("system", "exclusion"),
	}
}

// retroSources lists the channels the filter touches. Non-retroactive rows
// are never deleted here.
var retroSources = []vocab.SourceType{
	vocab.SourceVolumetryRetro,
	vocab.SourceOnCallRetro,
}

// Apply runs the enabled rules against the batch, scoped to retroactive
// sources and the batch's declared period. Deleting zero rows is success;
// re-running the filter on an already-filtered batch removes nothing.
func (f *Filter) Apply(ctx context.Context, batchID uuid.UUID, source vocab.SourceType, periodReference string) (Result, error) {
	var result Result

	if !source.Retroactive() {
		return result, nil
	}

	ref, err := period.ParseReference(periodReference)
	if err != nil {
		return result, err
	}
	window := ref.Window()

	if f.cfg.RealizationCutoffEnabled {
		cutoff, err := f.cutoff(window)
		if err != nil {
			return result, err
		}

		n, err := f.store.DeleteRealizedOnOrAfter(ctx, batchID, retroSources, cutoff)
		if err != nil {
			return result, err
		}
		result.ByRealizationDate = n
	}

	if f.cfg.ReportWindowEnabled {
		n, err := f.store.DeleteReportedOutside(ctx, batchID, retroSources, window.Start, window.End)
		if err != nil {
			return result, err
		}
		result.ByReportDate = n
	}

	if result.Total() > 0 {
		f.logger.Info("retroactive records excluded",
			"batch_id", batchID,
			"window", window.String(),
			"by_realization_date", result.ByRealizationDate,
			"by_report_date", result.ByReportDate,
		)
	}
	return result, nil
}

func (f *Filter) cutoff(window period.Period) (time.Time, error) {
	if f.cfg.RealizationCutoff == "" {
		return window.Start, nil
	}

	cutoff, err := time.Parse(time.DateOnly, f.cfg.RealizationCutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid realization cutoff %q: %w", f.cfg.RealizationCutoff, err)
	}
	return cutoff, nil
}
