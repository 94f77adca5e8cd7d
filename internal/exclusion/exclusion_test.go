package exclusion_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/exclusion"
	"github.com/tbessa/volumetry/internal/vocab"
)

type fakeStore struct {
	realizedDeleted int64
	reportedDeleted int64

	realizedCalls int
	reportedCalls int
	lastCutoff    time.Time
	lastStart     time.Time
	lastEnd       time.Time
	lastSources   []vocab.SourceType
}

func (f *fakeStore) DeleteRealizedOnOrAfter(ctx context.Context, batchID uuid.UUID, sources []vocab.SourceType, cutoff time.Time) (int64, error) {
	f.realizedCalls++
	f.lastCutoff = cutoff
	f.lastSources = sources
	return f.realizedDeleted, nil
}

func (f *fakeStore) DeleteReportedOutside(ctx context.Context, batchID uuid.UUID, sources []vocab.SourceType, start, end time.Time) (int64, error) {
	f.reportedCalls++
	f.lastStart = start
	f.lastEnd = end
	f.lastSources = sources
	return f.reportedDeleted, nil
}

func allEnabled() exclusion.Config {
	return exclusion.Config{
		RealizationCutoffEnabled: true,
		ReportWindowEnabled:      true,
	}
}

func TestApplySkipsNonRetroactiveSources(t *testing.T) {
	store := &fakeStore{realizedDeleted: 5, reportedDeleted: 3}
	filter := exclusion.New(store, allEnabled(), slog.Default())

	for _, source := range []vocab.SourceType{vocab.SourceVolumetry, vocab.SourceOnCall, vocab.SourceManual} {
		result, err := filter.Apply(context.Background(), uuid.New(), source, "2025-07")
		if err != nil {
			t.Fatalf("%s: apply failed: %v", source, err)
		}
		if result.Total() != 0 {
			t.Errorf("%s: got %+v, want no deletions", source, result)
		}
	}

	if store.realizedCalls != 0 || store.reportedCalls != 0 {
		t.Errorf("store must not be touched for non-retroactive sources")
	}
}

func TestApplyRetroactive(t *testing.T) {
	store := &fakeStore{realizedDeleted: 7, reportedDeleted: 2}
	filter := exclusion.New(store, allEnabled(), slog.Default())

	result, err := filter.Apply(context.Background(), uuid.New(), vocab.SourceVolumetryRetro, "2025-07")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if result.ByRealizationDate != 7 || result.ByReportDate != 2 {
		t.Errorf("got %+v", result)
	}
	if result.Total() != 9 {
		t.Errorf("total: got %d, want 9", result.Total())
	}

	wantCutoff := time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC)
	if !store.lastCutoff.Equal(wantCutoff) {
		t.Errorf("cutoff: got %v, want window start %v", store.lastCutoff, wantCutoff)
	}

	wantEnd := time.Date(2025, time.July, 7, 0, 0, 0, 0, time.UTC)
	if !store.lastStart.Equal(wantCutoff) || !store.lastEnd.Equal(wantEnd) {
		t.Errorf("window: got %v..%v", store.lastStart, store.lastEnd)
	}

	for _, s := range store.lastSources {
		if !s.Retroactive() {
			t.Errorf("non-retroactive source %s passed to store", s)
		}
	}
}

func TestApplyExplicitCutoff(t *testing.T) {
	store := &fakeStore{}
	cfg := exclusion.Config{
		RealizationCutoffEnabled: true,
		RealizationCutoff:        "2025-06-15",
	}
	filter := exclusion.New(store, cfg, slog.Default())

	if _, err := filter.Apply(context.Background(), uuid.New(), vocab.SourceOnCallRetro, "2025-07"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	want := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	if !store.lastCutoff.Equal(want) {
		t.Errorf("cutoff: got %v, want %v", store.lastCutoff, want)
	}
	if store.reportedCalls != 0 {
		t.Error("report window rule disabled but store was called")
	}
}

func TestApplyRerunDeletesNothing(t *testing.T) {
	store := &fakeStore{}
	filter := exclusion.New(store, allEnabled(), slog.Default())

	result, err := filter.Apply(context.Background(), uuid.New(), vocab.SourceVolumetryRetro, "2025-07")
	if err != nil {
		t.Fatalf("re-run must succeed with zero matches: %v", err)
	}
	if result.Total() != 0 {
		t.Errorf("got %+v, want empty result", result)
	}
}

func TestApplyInvalidInputs(t *testing.T) {
	store := &fakeStore{}

	t.Run("bad period", func(t *testing.T) {
		filter := exclusion.New(store, allEnabled(), slog.Default())
		if _, err := filter.Apply(context.Background(), uuid.New(), vocab.SourceVolumetryRetro, "07/2025"); err == nil {
			t.Error("expected error for malformed period reference")
		}
	})

	t.Run("bad cutoff", func(t *testing.T) {
		cfg := exclusion.Config{RealizationCutoffEnabled: true, RealizationCutoff: "15/06/2025"}
		filter := exclusion.New(store, cfg, slog.Default())
		if _, err := filter.Apply(context.Background(), uuid.New(), vocab.SourceVolumetryRetro, "2025-07"); err == nil {
			t.Error("expected error for malformed cutoff date")
		}
	})
}
