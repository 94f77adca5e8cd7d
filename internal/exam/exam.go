// Package exam defines the mutable attribute set of a billable imaging exam
// event. Staged and canonical records both carry these attributes; the rule
// engine, splitter, and price resolver operate on them without knowing which
// store a record came from.
package exam

import (
	"time"

	"github.com/tbessa/volumetry/internal/vocab"
)

// Record is the attribute set of one billable exam event.
//
// UnitValueCents is nil while the price is unresolved; zero is a valid
// resolved price and is distinct from unresolved. Monetary values are stored
// as integer cents.
type Record struct {
	ClientName       string           `json:"client_name"`
	PatientName      string           `json:"patient_name"`
	StudyDescription string           `json:"study_description"`
	Modality         string           `json:"modality"`
	Specialty        string           `json:"specialty"`
	Category         string           `json:"category"`
	Priority         string           `json:"priority"`
	RealizationDate  time.Time        `json:"realization_date"`
	RealizationTime  string           `json:"realization_time"`
	ReportDate       time.Time        `json:"report_date"`
	ReportTime       string           `json:"report_time"`
	UnitValueCents   *int64           `json:"unit_value_cents"`
	BillingType      vocab.BillingType `json:"billing_type"`
	SourceType       vocab.SourceType  `json:"source_type"`
	PeriodReference  string           `json:"period_reference"`
}

// Retroactive reports whether the record came from a retroactive channel.
func (r *Record) Retroactive() bool {
	return r.SourceType.Retroactive()
}

// Priced reports whether the unit value has been resolved (zero included).
func (r *Record) Priced() bool {
	return r.UnitValueCents != nil
}

// SetUnitValue resolves the unit price to the given value in cents.
func (r *Record) SetUnitValue(cents int64) {
	r.UnitValueCents = &cents
}
