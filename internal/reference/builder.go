package reference

// Builder assembles a Set. The repository uses it when loading from the
// database; tests use it to construct fixture sets directly.
type Builder struct {
	set *Set
}

// NewBuilder creates a Builder with an empty Set.
func NewBuilder() *Builder {
	return &Builder{
		set: &Set{
			clients:      make(map[string]Client),
			aliases:      make(map[string]string),
			routes:       make(map[string]OnCallRoute),
			splits:       make(map[string][]SplitChild),
			splitOrigin:  make(map[string]string),
			prices:       make(map[string]int64),
			specialties:  make(map[string][]SpecialtyMapping),
			catalog:      make(map[string]string),
			modalities:   make(map[string]bool),
			specialtySet: make(map[string]bool),
			categories:   make(map[string]bool),
		},
	}
}

// Client registers a client.
func (b *Builder) Client(c Client) *Builder {
	b.set.clients[Key(c.Name)] = c
	return b
}

// Alias maps a raw display name to a canonical client name.
func (b *Builder) Alias(alias, client string) *Builder {
	b.set.aliases[Key(alias)] = client
	return b
}

// OnCallRoute registers a plantão routing, indexed by all three bucket names
// so the routing rule stays idempotent on already-routed records.
func (b *Builder) OnCallRoute(r OnCallRoute) *Builder {
	b.set.routes[Key(r.RawClient)] = r
	b.set.routes[Key(r.OnCallClient)] = r
	b.set.routes[Key(r.BaseClient)] = r
	return b
}

// Split adds one child to the split rule for a composite description.
func (b *Builder) Split(original string, child SplitChild) *Builder {
	origKey := Key(original)
	b.set.splits[origKey] = append(b.set.splits[origKey], child)
	b.set.splitOrigin[origKey] = original
	b.set.splitOrigin[Key(child.Description)] = original
	return b
}

// Price registers an active unit price in cents for a description.
func (b *Builder) Price(description string, cents int64) *Builder {
	b.set.prices[Key(description)] = cents
	return b
}

// Specialty adds a specialty correction mapping.
func (b *Builder) Specialty(m SpecialtyMapping) *Builder {
	key := Key(m.From)
	b.set.specialties[key] = append(b.set.specialties[key], m)
	return b
}

// Catalog registers the cadastral category for a description.
func (b *Builder) Catalog(description, category string) *Builder {
	b.set.catalog[Key(description)] = category
	b.set.categories[Key(category)] = true
	return b
}

// Modality adds a modality to the closed vocabulary.
func (b *Builder) Modality(names ...string) *Builder {
	for _, name := range names {
		b.set.modalities[Key(name)] = true
	}
	return b
}

// SpecialtyVocab adds specialties to the closed vocabulary.
func (b *Builder) SpecialtyVocab(names ...string) *Builder {
	for _, name := range names {
		b.set.specialtySet[Key(name)] = true
	}
	return b
}

// Category adds categories to the closed vocabulary.
func (b *Builder) Category(names ...string) *Builder {
	for _, name := range names {
		b.set.categories[Key(name)] = true
	}
	return b
}

// Build returns the assembled Set.
func (b *Builder) Build() *Set {
	return b.set
}
