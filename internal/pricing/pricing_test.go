package pricing_test

import (
	"testing"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/pricing"
	"github.com/tbessa/volumetry/internal/reference"
)

func priceSet() *reference.Set {
	return reference.NewBuilder().
		Price("TC CRANIO", 18000).
		Price("US ABDOME TOTAL", 9500).
		Price("RX TORAX GRATUITO", 0).
		Split("US ABDOME TOTAL", reference.SplitChild{Description: "US ABDOME SUPERIOR", Category: "ULTRASSOM"}).
		Split("US ABDOME TOTAL", reference.SplitChild{Description: "US PELVE", Category: "ULTRASSOM"}).
		Build()
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		desc       string
		resolution pricing.Resolution
		cents      int64
	}{
		{"direct", "TC CRANIO", pricing.ResolvedDirect, 18000},
		{"via split origin", "US PELVE", pricing.ResolvedViaSplit, 9500},
		{"zero price is resolved", "RX TORAX GRATUITO", pricing.ResolvedDirect, 0},
	}

	refs := priceSet()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := exam.Record{StudyDescription: tt.desc}
			got := pricing.Resolve(&rec, refs)
			if got != tt.resolution {
				t.Fatalf("resolution: got %v, want %v", got, tt.resolution)
			}
			if rec.UnitValueCents == nil {
				t.Fatal("expected resolved price")
			}
			if *rec.UnitValueCents != tt.cents {
				t.Errorf("cents: got %d, want %d", *rec.UnitValueCents, tt.cents)
			}
		})
	}
}

func TestResolveUnresolvedStaysNil(t *testing.T) {
	refs := priceSet()

	stale := int64(999)
	rec := exam.Record{StudyDescription: "RM JOELHO", UnitValueCents: &stale}

	if got := pricing.Resolve(&rec, refs); got != pricing.Unresolved {
		t.Fatalf("resolution: got %v, want Unresolved", got)
	}
	if rec.UnitValueCents != nil {
		t.Error("unresolved price must clear any previous value")
	}
	if rec.Priced() {
		t.Error("unresolved record must not report as priced")
	}
}

func TestDirectPriceWinsOverSplitOrigin(t *testing.T) {
	refs := reference.NewBuilder().
		Price("US ABDOME TOTAL", 9500).
		Price("US PELVE", 4000).
		Split("US ABDOME TOTAL", reference.SplitChild{Description: "US PELVE", Category: "ULTRASSOM"}).
		Build()

	rec := exam.Record{StudyDescription: "US PELVE"}
	if got := pricing.Resolve(&rec, refs); got != pricing.ResolvedDirect {
		t.Fatalf("resolution: got %v, want ResolvedDirect", got)
	}
	if *rec.UnitValueCents != 4000 {
		t.Errorf("cents: got %d, want 4000", *rec.UnitValueCents)
	}
}
