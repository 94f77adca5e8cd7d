package vocab_test

import (
	"testing"

	"github.com/tbessa/volumetry/internal/vocab"
)

func TestParseSourceType(t *testing.T) {
	tests := []struct {
		raw     string
		want    vocab.SourceType
		wantErr bool
	}{
		{"volumetria", vocab.SourceVolumetry, false},
		{"VOLUMETRIA_RETROATIVO", vocab.SourceVolumetryRetro, false},
		{"  plantao  ", vocab.SourceOnCall, false},
		{"plantao_retroativo", vocab.SourceOnCallRetro, false},
		{"avulso", vocab.SourceManual, false},
		{"volumetria2", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := vocab.ParseSourceType(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetroactive(t *testing.T) {
	retro := map[vocab.SourceType]bool{
		vocab.SourceVolumetry:      false,
		vocab.SourceVolumetryRetro: true,
		vocab.SourceOnCall:         false,
		vocab.SourceOnCallRetro:    true,
		vocab.SourceManual:         false,
	}

	for source, want := range retro {
		if got := source.Retroactive(); got != want {
			t.Errorf("%s: got %v, want %v", source, got, want)
		}
	}
}

func TestSourceTypeValid(t *testing.T) {
	for _, s := range vocab.SourceTypes {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if vocab.SourceType("volumetria2").Valid() {
		t.Error("unknown source type should be invalid")
	}
	if vocab.SourceType("VOLUMETRIA").Valid() {
		t.Error("source types are lowercase canonical values")
	}
	if vocab.SourceType("").Valid() {
		t.Error("empty source type should be invalid")
	}
}

func TestBillingTypeValid(t *testing.T) {
	for _, bt := range []vocab.BillingType{
		vocab.BillingContracted,
		vocab.BillingNonContractedInvoiced,
		vocab.BillingNonContractedUnbilled,
	} {
		if !bt.Valid() {
			t.Errorf("%s should be valid", bt)
		}
	}

	if vocab.BillingType("FT").Valid() {
		t.Error("unknown billing type should be invalid")
	}
	if vocab.BillingType("").Valid() {
		t.Error("empty billing type should be invalid")
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range vocab.Priorities {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if vocab.Priority("plantao").Valid() {
		t.Error("priorities are case-sensitive canonical values")
	}
}
