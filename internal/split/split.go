// Package split expands composite exam descriptions into their billable
// sub-exams according to the split rule table. The parent record is replaced,
// never retained alongside its children.
package split

import (
	"github.com/google/uuid"

	"github.com/tbessa/volumetry/internal/reference"
	"github.com/tbessa/volumetry/internal/staging"
)

// Expand returns the child records for a staged record whose description
// matches a split rule, or (nil, false) for a record that passes through
// unchanged. Children inherit the parent's shared attributes and carry the
// description and category of their split definition; prices are cleared so
// the price resolver reconsiders each child on its own.
func Expand(parent *staging.Record, refs *reference.Set) ([]staging.Record, bool) {
	children, ok := refs.SplitFor(parent.Exam.StudyDescription)
	if !ok || len(children) == 0 {
		return nil, false
	}

	// A rule whose child is itself a split original would expand without
	// bound; treat it as misconfigured and pass the record through.
	parentKey := reference.Key(parent.Exam.StudyDescription)
	for _, child := range children {
		childKey := reference.Key(child.Description)
		if childKey == parentKey {
			return nil, false
		}
		if _, nested := refs.SplitFor(child.Description); nested {
			return nil, false
		}
	}

	out := make([]staging.Record, len(children))
	for i, child := range children {
		rec := *parent
		rec.ID = uuid.Nil
		rec.ParentID = &parent.ID
		rec.Exam.StudyDescription = reference.Key(child.Description)
		rec.Exam.Category = reference.Key(child.Category)
		rec.Exam.UnitValueCents = nil
		out[i] = rec
	}

	return out, true
}
