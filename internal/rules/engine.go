package rules

import (
	"fmt"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/reference"
)

// ErrUnknownRule is returned for targeted invocations naming a rule that is
// not in the table.
var ErrUnknownRule = fmt.Errorf("unknown rule")

// Engine applies the versioned rule table to records.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine over the current rule table.
func NewEngine() *Engine {
	return &Engine{rules: Table()}
}

// Apply runs every rule in declaration order against the record, mutating it
// in place. The first rejection short-circuits and is returned; a zero
// Outcome means the record passed all rules.
func (e *Engine) Apply(rec *exam.Record, refs *reference.Set) Outcome {
	for _, rule := range e.rules {
		if out := rule.Apply(rec, refs); out.Rejected {
			return out
		}
	}
	return Accept
}

// ApplyRule runs a single named rule, for targeted operator invocations.
func (e *Engine) ApplyRule(name string, rec *exam.Record, refs *reference.Set) (Outcome, error) {
	rule, ok := Lookup(name)
	if !ok {
		return Accept, fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}
	return rule.Apply(rec, refs), nil
}

// Names returns the rule names in execution order.
func (e *Engine) Names() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}
