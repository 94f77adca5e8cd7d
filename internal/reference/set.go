// Package reference loads and caches the read-only reference data the
// pipeline consults: the client registry, split rules, price references,
// specialty mappings, the exam catalog, and the closed attribute
// vocabularies. A Set is loaded once per pipeline invocation; concurrent
// external edits take effect on the next load.
package reference

import "strings"

// Client is a registered billing client.
type Client struct {
	Name           string
	Active         bool
	BillingType    string
	ManualFollowUp bool
}

// OnCallRoute splits one raw client bucket into an on-call (plantão) client
// and a base client, selected by the record's priority.
type OnCallRoute struct {
	RawClient    string
	OnCallClient string
	BaseClient   string
}

// SplitChild is one billable sub-exam produced by a split rule.
type SplitChild struct {
	Description string
	Category    string
}

// SpecialtyMapping remaps a known-bad specialty label. A non-empty Modality
// restricts the mapping to records of that modality; modality-specific rows
// win over generic ones.
type SpecialtyMapping struct {
	From     string
	To       string
	Modality string
}

// Set is a per-invocation snapshot of all reference data.
type Set struct {
	clients     map[string]Client
	aliases     map[string]string
	routes      map[string]OnCallRoute
	splits      map[string][]SplitChild
	splitOrigin map[string]string
	prices      map[string]int64
	specialties map[string][]SpecialtyMapping
	catalog     map[string]string
	modalities  map[string]bool
	specialtySet map[string]bool
	categories  map[string]bool
}

// Key normalizes a lookup key: trimmed, uppercased, inner whitespace collapsed.
func Key(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(s))), " ")
}

// ClientByName returns the registered client for a (normalized) name.
func (s *Set) ClientByName(name string) (Client, bool) {
	c, ok := s.clients[Key(name)]
	return c, ok
}

// ResolveAlias maps a raw client display name to its canonical client name.
// Returns the input unchanged when no alias is registered.
func (s *Set) ResolveAlias(name string) string {
	if canonical, ok := s.aliases[Key(name)]; ok {
		return canonical
	}
	return name
}

// OnCallRouteFor returns the plantão routing for a client bucket. The route
// matches the raw bucket name as well as both routed names, so re-applying
// the routing rule to an already-routed record resolves to the same route.
func (s *Set) OnCallRouteFor(name string) (OnCallRoute, bool) {
	r, ok := s.routes[Key(name)]
	return r, ok
}

// SplitFor returns the child exams for a composite study description.
func (s *Set) SplitFor(description string) ([]SplitChild, bool) {
	children, ok := s.splits[Key(description)]
	return children, ok
}

// SplitOriginFor returns the original (composite) description when the given
// description appears on either side of a split rule.
func (s *Set) SplitOriginFor(description string) (string, bool) {
	orig, ok := s.splitOrigin[Key(description)]
	return orig, ok
}

// PriceFor returns the active unit price in cents for a study description.
func (s *Set) PriceFor(description string) (int64, bool) {
	cents, ok := s.prices[Key(description)]
	return cents, ok
}

// SpecialtyFor returns the corrected specialty for a label, preferring a
// mapping conditioned on the record's modality over a generic one.
func (s *Set) SpecialtyFor(specialty, modality string) (string, bool) {
	mappings, ok := s.specialties[Key(specialty)]
	if !ok {
		return "", false
	}

	modKey := Key(modality)
	generic := ""
	found := false

	for _, m := range mappings {
		if m.Modality != "" {
			if Key(m.Modality) == modKey {
				return m.To, true
			}
			continue
		}
		generic = m.To
		found = true
	}

	return generic, found
}

// CategoryFor returns the cadastral category for a study description.
func (s *Set) CategoryFor(description string) (string, bool) {
	cat, ok := s.catalog[Key(description)]
	return cat, ok
}

// ValidModality reports whether the modality belongs to the closed vocabulary.
func (s *Set) ValidModality(modality string) bool {
	return s.modalities[Key(modality)]
}

// ValidSpecialty reports whether the specialty belongs to the closed vocabulary.
func (s *Set) ValidSpecialty(specialty string) bool {
	return s.specialtySet[Key(specialty)]
}

// ValidCategory reports whether the category belongs to the closed vocabulary.
func (s *Set) ValidCategory(category string) bool {
	return s.categories[Key(category)]
}

// Modalities returns the modality vocabulary keys.
func (s *Set) Modalities() []string {
	keys := make([]string, 0, len(s.modalities))
	for k := range s.modalities {
		keys = append(keys, k)
	}
	return keys
}
