package reference

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// System loads reference data snapshots.
type System interface {
	// Load reads all reference tables into a Set. The pipeline calls it once
	// per invocation; no locking is taken against concurrent external edits.
	Load(ctx context.Context) (*Set, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a reference repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "reference"),
	}
}

func (r *repo) Load(ctx context.Context) (*Set, error) {
	start := time.Now()
	b := NewBuilder()

	if err := r.loadClients(ctx, b); err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	if err := r.loadAliases(ctx, b); err != nil {
		return nil, fmt.Errorf("load client aliases: %w", err)
	}
	if err := r.loadOnCallRoutes(ctx, b); err != nil {
		return nil, fmt.Errorf("load oncall routes: %w", err)
	}
	if err := r.loadSplitRules(ctx, b); err != nil {
		return nil, fmt.Errorf("load split rules: %w", err)
	}
	if err := r.loadPrices(ctx, b); err != nil {
		return nil, fmt.Errorf("load price references: %w", err)
	}
	if err := r.loadSpecialtyMappings(ctx, b); err != nil {
		return nil, fmt.Errorf("load specialty mappings: %w", err)
	}
	if err := r.loadCatalog(ctx, b); err != nil {
		return nil, fmt.Errorf("load exam catalog: %w", err)
	}
	if err := r.loadVocabularies(ctx, b); err != nil {
		return nil, fmt.Errorf("load vocabularies: %w", err)
	}

	r.logger.Info("reference data loaded", "duration", time.Since(start))
	return b.Build(), nil
}

func (r *repo) loadClients(ctx context.Context, b *Builder) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name, active, billing_type, manual_follow_up FROM clients")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.Name, &c.Active, &c.BillingType, &c.ManualFollowUp); err != nil {
			return err
		}
		b.Client(c)
	}
	return rows.Err()
}

func (r *repo) loadAliases(ctx context.Context, b *Builder) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT alias, client_name FROM client_aliases")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var alias, client string
		if err := rows.Scan(&alias, &client); err != nil {
			return err
		}
		b.Alias(alias, client)
	}
	return rows.Err()
}

func (r *repo) loadOnCallRoutes(ctx context.Context, b *Builder) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT raw_client, oncall_client, base_client FROM oncall_routes")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var route OnCallRoute
		if err := rows.Scan(&route.RawClient, &route.OnCallClient, &route.BaseClient); err != nil {
			return err
		}
		b.OnCallRoute(route)
	}
	return rows.Err()
}

func (r *repo) loadSplitRules(ctx context.Context, b *Builder) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT exame_original, exame_quebrado, categoria FROM split_rules WHERE active = true")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var original string
		var child SplitChild
		if err := rows.Scan(&original, &child.Description, &child.Category); err != nil {
			return err
		}
		b.Split(original, child)
	}
	return rows.Err()
}

func (r *repo) loadPrices(ctx context.Context, b *Builder) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT description, unit_value_cents FROM price_references WHERE active = true")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var description string
		var cents int64
		if err := rows.Scan(&description, &cents); err != nil {
			return err
		}
		if cents < 0 {
			r.logger.Warn("ignoring negative price reference", "description", description, "cents", cents)
			continue
		}
		b.Price(description, cents)
	}
	return rows.Err()
}

func (r *repo) loadSpecialtyMappings(ctx context.Context, b *Builder) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT from_specialty, to_specialty, COALESCE(modality, '') FROM specialty_mappings")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m SpecialtyMapping
		if err := rows.Scan(&m.From, &m.To, &m.Modality); err != nil {
			return err
		}
		b.Specialty(m)
	}
	return rows.Err()
}

func (r *repo) loadCatalog(ctx context.Context, b *Builder) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT description, category FROM exam_catalog")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var description, category string
		if err := rows.Scan(&description, &category); err != nil {
			return err
		}
		b.Catalog(description, category)
	}
	return rows.Err()
}

func (r *repo) loadVocabularies(ctx context.Context, b *Builder) error {
	type vocabTable struct {
		query string
		add   func(string)
	}

	tables := []vocabTable{
		{"SELECT name FROM modalities", func(v string) { b.Modality(v) }},
		{"SELECT name FROM specialties", func(v string) { b.SpecialtyVocab(v) }},
		{"SELECT name FROM categories", func(v string) { b.Category(v) }},
	}

	for _, tbl := range tables {
		rows, err := r.db.QueryContext(ctx, tbl.query)
		if err != nil {
			return err
		}

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return err
			}
			tbl.add(name)
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}

	return nil
}
