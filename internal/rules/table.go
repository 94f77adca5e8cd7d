package rules

import (
	"strings"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/reference"
	"github.com/tbessa/volumetry/internal/vocab"
)

// Version identifies the rule table revision. Bump it whenever a rule is
// added, removed, or its behavior changes, so batch diagnostics can tell
// which revision processed a record.
const Version = 1

// table is the single ordered rule list. Ordering within the slice is the
// execution order; tiers are annotated for diagnostics and for targeted
// invocations but the slice itself is already tier-sorted.
var table = []Rule{
	{Name: "normalize_client_name", Tier: TierIdentity, Apply: normalizeClientName},
	{Name: "resolve_client_alias", Tier: TierIdentity, Apply: resolveClientAlias},
	{Name: "route_oncall_client", Tier: TierIdentity, Apply: routeOnCallClient},
	{Name: "normalize_modality", Tier: TierModality, Apply: normalizeModality},
	{Name: "enforce_modality_prefix", Tier: TierModality, Apply: enforceModalityPrefix},
	{Name: "normalize_specialty", Tier: TierSpecialty, Apply: normalizeSpecialty},
	{Name: "correct_specialty", Tier: TierSpecialty, Apply: correctSpecialty},
	{Name: "assign_category", Tier: TierCategory, Apply: assignCategory},
	{Name: "map_priority", Tier: TierPriority, Apply: mapPriority},
	{Name: "classify_billing_type", Tier: TierBilling, Apply: classifyBillingType},
	{Name: "validate_client", Tier: TierValidation, Apply: validateClient},
	{Name: "validate_modality", Tier: TierValidation, Apply: validateModality},
	{Name: "validate_specialty", Tier: TierValidation, Apply: validateSpecialty},
	{Name: "validate_category", Tier: TierValidation, Apply: validateCategory},
}

// Table returns the ordered rule table.
func Table() []Rule {
	return table
}

// Lookup returns the rule with the given name.
func Lookup(name string) (Rule, bool) {
	for _, r := range table {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

func normalizeClientName(rec *exam.Record, _ *reference.Set) Outcome {
	rec.ClientName = reference.Key(rec.ClientName)
	if rec.ClientName == "" {
		return Reject("normalize_client_name", "record has no client name")
	}
	return Accept
}

func resolveClientAlias(rec *exam.Record, refs *reference.Set) Outcome {
	rec.ClientName = reference.Key(refs.ResolveAlias(rec.ClientName))
	return Accept
}

// routeOnCallClient splits a raw client bucket into its plantão and base
// clients by the record's priority. The route table matches already-routed
// names too, so a second pass resolves to the same destination.
func routeOnCallClient(rec *exam.Record, refs *reference.Set) Outcome {
	route, ok := refs.OnCallRouteFor(rec.ClientName)
	if !ok {
		return Accept
	}

	if strings.Contains(fold(rec.Priority), string(vocab.PriorityOnCall)) {
		rec.ClientName = reference.Key(route.OnCallClient)
	} else {
		rec.ClientName = reference.Key(route.BaseClient)
	}
	return Accept
}

func normalizeModality(rec *exam.Record, _ *reference.Set) Outcome {
	rec.Modality = reference.Key(rec.Modality)
	return Accept
}

// enforceModalityPrefix fixes systematically mis-tagged modalities: a study
// description literally starting with a modality token gets that modality,
// whatever the extract claimed.
func enforceModalityPrefix(rec *exam.Record, refs *reference.Set) Outcome {
	fields := strings.Fields(reference.Key(rec.StudyDescription))
	if len(fields) == 0 {
		return Reject("enforce_modality_prefix", "record has no study description")
	}

	if prefix := fields[0]; refs.ValidModality(prefix) && rec.Modality != prefix {
		rec.Modality = prefix
	}
	return Accept
}

func normalizeSpecialty(rec *exam.Record, _ *reference.Set) Outcome {
	rec.Specialty = reference.Key(rec.Specialty)
	return Accept
}

func correctSpecialty(rec *exam.Record, refs *reference.Set) Outcome {
	if corrected, ok := refs.SpecialtyFor(rec.Specialty, rec.Modality); ok {
		rec.Specialty = reference.Key(corrected)
	}
	return Accept
}

// assignCategory resolves the category from the exam catalog. A description
// with no catalog entry passes only when a split rule matches it, because the
// splitter replaces it with children that carry their own categories.
func assignCategory(rec *exam.Record, refs *reference.Set) Outcome {
	if cat, ok := refs.CategoryFor(rec.StudyDescription); ok {
		rec.Category = reference.Key(cat)
		return Accept
	}

	if _, ok := refs.SplitFor(rec.StudyDescription); ok {
		return Accept
	}

	if rec.Category != "" && refs.ValidCategory(rec.Category) {
		return Accept
	}

	return Reject("assign_category", "no category registered for description %q", rec.StudyDescription)
}

func mapPriority(rec *exam.Record, _ *reference.Set) Outcome {
	rec.Priority = string(canonicalPriority(rec.Priority))
	return Accept
}

// canonicalPriority maps raw priority text to the canonical enum. Canonical
// values map to themselves, so re-mapping is a no-op.
func canonicalPriority(raw string) vocab.Priority {
	f := fold(raw)
	switch {
	case strings.Contains(f, "PLANTAO"):
		return vocab.PriorityOnCall
	case strings.Contains(f, "EMERG"):
		return vocab.PriorityEmergency
	case strings.Contains(f, "URGEN"):
		return vocab.PriorityUrgent
	case strings.Contains(f, "INTERN"):
		return vocab.PriorityInpatient
	default:
		return vocab.PriorityRoutine
	}
}

// classifyBillingType derives the billing type from the client registry.
// Clients outside the non-contracted registry default to contracted-invoiced.
func classifyBillingType(rec *exam.Record, refs *reference.Set) Outcome {
	if client, ok := refs.ClientByName(rec.ClientName); ok {
		if bt := vocab.BillingType(client.BillingType); bt.Valid() {
			rec.BillingType = bt
			return Accept
		}
	}

	rec.BillingType = vocab.BillingContracted
	return Accept
}

func validateClient(rec *exam.Record, refs *reference.Set) Outcome {
	client, ok := refs.ClientByName(rec.ClientName)
	if !ok {
		return Reject("validate_client", "client %q not registered", rec.ClientName)
	}

	if !client.Active && !client.ManualFollowUp {
		return Reject("validate_client", "client %q is inactive", rec.ClientName)
	}
	return Accept
}

func validateModality(rec *exam.Record, refs *reference.Set) Outcome {
	if !refs.ValidModality(rec.Modality) {
		return Reject("validate_modality", "modality %q not in vocabulary", rec.Modality)
	}
	return Accept
}

func validateSpecialty(rec *exam.Record, refs *reference.Set) Outcome {
	if !refs.ValidSpecialty(rec.Specialty) {
		return Reject("validate_specialty", "specialty %q not in vocabulary", rec.Specialty)
	}
	return Accept
}

// validateCategory accepts an empty category only for records a split rule
// will replace; everything else must carry a vocabulary category.
func validateCategory(rec *exam.Record, refs *reference.Set) Outcome {
	if rec.Category == "" {
		if _, ok := refs.SplitFor(rec.StudyDescription); ok {
			return Accept
		}
		return Reject("validate_category", "record has no category")
	}

	if !refs.ValidCategory(rec.Category) {
		return Reject("validate_category", "category %q not in vocabulary", rec.Category)
	}
	return Accept
}
