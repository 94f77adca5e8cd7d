// Package pricing resolves a unit value per record from the price reference
// table. An unresolved price is explicit, never a silent zero: the record
// still commits and surfaces in the unpriced report.
package pricing

import (
	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/reference"
)

// Resolution says which lookup tier produced the price.
type Resolution int

const (
	// ResolvedDirect means the description had an active price reference.
	ResolvedDirect Resolution = iota
	// ResolvedViaSplit means the price came from the composite description
	// the record's description belongs to in the split rule table.
	ResolvedViaSplit
	// Unresolved means no lookup tier produced a price.
	Unresolved
)

// Resolve sets the record's unit value from the first matching lookup tier.
// First match wins; tiers never blend. Records left unresolved keep a nil
// unit value so downstream invoicing can tell them from zero-priced exams.
func Resolve(rec *exam.Record, refs *reference.Set) Resolution {
	if cents, ok := refs.PriceFor(rec.StudyDescription); ok {
		rec.SetUnitValue(cents)
		return ResolvedDirect
	}

	if origin, ok := refs.SplitOriginFor(rec.StudyDescription); ok {
		if cents, ok := refs.PriceFor(origin); ok {
			rec.SetUnitValue(cents)
			return ResolvedViaSplit
		}
	}

	rec.UnitValueCents = nil
	return Unresolved
}
