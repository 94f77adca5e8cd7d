package pipeline

import (
	"testing"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/vocab"
)

func TestExamEqual(t *testing.T) {
	price := int64(12500)
	samePrice := int64(12500)
	otherPrice := int64(9000)

	base := func() exam.Record {
		return exam.Record{
			ClientName:       "CEMVALENCA",
			PatientName:      "MARIA SILVA",
			StudyDescription: "TC CRANIO",
			Modality:         "TC",
			Specialty:        "NEURORRADIOLOGIA",
			Category:         "TOMOGRAFIA",
			Priority:         "ROTINA",
			UnitValueCents:   &price,
			BillingType:      vocab.BillingContracted,
		}
	}

	tests := []struct {
		name   string
		mutate func(*exam.Record)
		want   bool
	}{
		{"identical", func(r *exam.Record) {}, true},
		{"same price different pointer", func(r *exam.Record) { r.UnitValueCents = &samePrice }, true},
		{"different price", func(r *exam.Record) { r.UnitValueCents = &otherPrice }, false},
		{"price cleared", func(r *exam.Record) { r.UnitValueCents = nil }, false},
		{"client changed", func(r *exam.Record) { r.ClientName = "OUTRO" }, false},
		{"category changed", func(r *exam.Record) { r.Category = "RESSONANCIA" }, false},
		{"billing changed", func(r *exam.Record) { r.BillingType = vocab.BillingNonContractedInvoiced }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			b := base()
			tt.mutate(&b)
			if got := examEqual(&a, &b); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExamEqualBothUnpriced(t *testing.T) {
	a := exam.Record{StudyDescription: "RM JOELHO"}
	b := exam.Record{StudyDescription: "RM JOELHO"}
	if !examEqual(&a, &b) {
		t.Error("two unpriced records with equal attributes should compare equal")
	}
}
