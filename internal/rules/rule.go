// Package rules implements the ordered transformation and validation rules
// applied to every staged record before promotion. The rules live in a single
// versioned table executed tier by tier; each rule is a pure function over the
// record's mutable attributes and the reference data snapshot, and every rule
// is safe to re-apply to an already-ruled record.
package rules

import (
	"fmt"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/reference"
)

// Tier groups rules by dependency order. Later tiers read attributes written
// by earlier ones, so tiers execute strictly in ascending order.
type Tier int

const (
	TierIdentity Tier = iota + 1
	TierModality
	TierSpecialty
	TierCategory
	TierPriority
	TierBilling
	TierValidation
)

// Outcome is the result of applying one rule to one record.
type Outcome struct {
	Rejected bool
	Rule     string
	Reason   string
}

// Accept is the passing outcome.
var Accept = Outcome{}

// Reject builds a rejection outcome for the named rule.
func Reject(rule, format string, args ...any) Outcome {
	return Outcome{
		Rejected: true,
		Rule:     rule,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// ApplyFunc mutates the record in place or demands its rejection.
type ApplyFunc func(rec *exam.Record, refs *reference.Set) Outcome

// Rule is one entry of the versioned rule table.
type Rule struct {
	Name  string
	Tier  Tier
	Apply ApplyFunc
}
