package rules_test

import (
	"errors"
	"testing"

	"github.com/tbessa/volumetry/internal/exam"
	"github.com/tbessa/volumetry/internal/reference"
	"github.com/tbessa/volumetry/internal/rules"
	"github.com/tbessa/volumetry/internal/vocab"
)

func fixtureSet() *reference.Set {
	return reference.NewBuilder().
		Client(reference.Client{Name: "CEMVALENCA", Active: true, BillingType: "CO-FT"}).
		Client(reference.Client{Name: "CEMVALENCA PL", Active: true, BillingType: "CO-FT"}).
		Client(reference.Client{Name: "HOSPITAL SANTA CASA", Active: true, BillingType: "NC-FT"}).
		Client(reference.Client{Name: "CLINICA ENCERRADA", Active: false}).
		Client(reference.Client{Name: "CLINICA EM ACERTO", Active: false, ManualFollowUp: true, BillingType: "CO-FT"}).
		Alias("SANTA CASA BA", "HOSPITAL SANTA CASA").
		OnCallRoute(reference.OnCallRoute{
			RawClient:    "CEMVALENCA",
			OnCallClient: "CEMVALENCA PL",
			BaseClient:   "CEMVALENCA",
		}).
		Split("US ABDOME TOTAL", reference.SplitChild{Description: "US ABDOME SUPERIOR", Category: "ULTRASSOM"}).
		Split("US ABDOME TOTAL", reference.SplitChild{Description: "US PELVE", Category: "ULTRASSOM"}).
		Specialty(reference.SpecialtyMapping{From: "NEURO", To: "NEURORRADIOLOGIA"}).
		Specialty(reference.SpecialtyMapping{From: "MSK", To: "MUSCULOESQUELETICO", Modality: "RM"}).
		Specialty(reference.SpecialtyMapping{From: "MSK", To: "MEDICINA INTERNA"}).
		Catalog("TC CRANIO", "TOMOGRAFIA").
		Catalog("RM JOELHO", "RESSONANCIA").
		Catalog("MAMOGRAFIA BILATERAL", "MAMOGRAFIA").
		Modality("TC", "RM", "US").
		SpecialtyVocab("NEURORRADIOLOGIA", "MUSCULOESQUELETICO", "MEDICINA INTERNA").
		Category("TOMOGRAFIA", "RESSONANCIA", "ULTRASSOM").
		Build()
}

func validRecord() exam.Record {
	return exam.Record{
		ClientName:       "cemvalenca",
		PatientName:      "MARIA SILVA",
		StudyDescription: "TC CRANIO",
		Modality:         "tc",
		Specialty:        "neuro",
		Priority:         "Rotina",
		SourceType:       vocab.SourceVolumetry,
		PeriodReference:  "2025-07",
	}
}

func TestApplyAccepts(t *testing.T) {
	refs := fixtureSet()
	engine := rules.NewEngine()
	rec := validRecord()

	out := engine.Apply(&rec, refs)
	if out.Rejected {
		t.Fatalf("rejected by %s: %s", out.Rule, out.Reason)
	}

	if rec.ClientName != "CEMVALENCA" {
		t.Errorf("client: got %q", rec.ClientName)
	}
	if rec.Modality != "TC" {
		t.Errorf("modality: got %q", rec.Modality)
	}
	if rec.Specialty != "NEURORRADIOLOGIA" {
		t.Errorf("specialty: got %q", rec.Specialty)
	}
	if rec.Category != "TOMOGRAFIA" {
		t.Errorf("category: got %q", rec.Category)
	}
	if rec.Priority != string(vocab.PriorityRoutine) {
		t.Errorf("priority: got %q", rec.Priority)
	}
	if rec.BillingType != vocab.BillingContracted {
		t.Errorf("billing type: got %q", rec.BillingType)
	}
}

func TestApplyIdempotent(t *testing.T) {
	refs := fixtureSet()
	engine := rules.NewEngine()
	rec := validRecord()

	if out := engine.Apply(&rec, refs); out.Rejected {
		t.Fatalf("first pass rejected: %s", out.Reason)
	}
	once := rec

	if out := engine.Apply(&rec, refs); out.Rejected {
		t.Fatalf("second pass rejected: %s", out.Reason)
	}
	if rec != once {
		t.Errorf("second pass changed record:\nfirst:  %+v\nsecond: %+v", once, rec)
	}
}

func TestOnCallRouting(t *testing.T) {
	tests := []struct {
		name     string
		client   string
		priority string
		want     string
	}{
		{"oncall priority routes to plantao client", "CEMVALENCA", "Plantão", "CEMVALENCA PL"},
		{"folded oncall priority", "CEMVALENCA", "plantao noturno", "CEMVALENCA PL"},
		{"routine priority routes to base client", "CEMVALENCA", "Rotina", "CEMVALENCA"},
		{"already routed oncall stays", "CEMVALENCA PL", "PLANTAO", "CEMVALENCA PL"},
		{"already routed base stays", "CEMVALENCA PL", "ROTINA", "CEMVALENCA"},
		{"unrouted client untouched", "HOSPITAL SANTA CASA", "PLANTAO", "HOSPITAL SANTA CASA"},
	}

	refs := fixtureSet()
	engine := rules.NewEngine()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := exam.Record{ClientName: tt.client, Priority: tt.priority}
			if _, err := engine.ApplyRule("route_oncall_client", &rec, refs); err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if rec.ClientName != tt.want {
				t.Errorf("got %q, want %q", rec.ClientName, tt.want)
			}
		})
	}
}

func TestAliasResolution(t *testing.T) {
	refs := fixtureSet()
	rec := exam.Record{ClientName: "Santa Casa BA"}

	engine := rules.NewEngine()
	if _, err := engine.ApplyRule("normalize_client_name", &rec, refs); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if _, err := engine.ApplyRule("resolve_client_alias", &rec, refs); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if rec.ClientName != "HOSPITAL SANTA CASA" {
		t.Errorf("got %q", rec.ClientName)
	}
}

func TestModalityPrefixEnforced(t *testing.T) {
	refs := fixtureSet()
	engine := rules.NewEngine()

	rec := exam.Record{StudyDescription: "RM JOELHO", Modality: "TC"}
	if _, err := engine.ApplyRule("enforce_modality_prefix", &rec, refs); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if rec.Modality != "RM" {
		t.Errorf("got %q, want RM", rec.Modality)
	}
}

func TestSpecialtyModalitySpecificWins(t *testing.T) {
	tests := []struct {
		name     string
		modality string
		want     string
	}{
		{"modality specific", "RM", "MUSCULOESQUELETICO"},
		{"generic fallback", "TC", "MEDICINA INTERNA"},
	}

	refs := fixtureSet()
	engine := rules.NewEngine()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := exam.Record{Specialty: "MSK", Modality: tt.modality}
			if _, err := engine.ApplyRule("correct_specialty", &rec, refs); err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if rec.Specialty != tt.want {
				t.Errorf("got %q, want %q", rec.Specialty, tt.want)
			}
		})
	}
}

func TestPriorityFolding(t *testing.T) {
	tests := []struct {
		raw  string
		want vocab.Priority
	}{
		{"Plantão", vocab.PriorityOnCall},
		{"plantao", vocab.PriorityOnCall},
		{"EMERGÊNCIA", vocab.PriorityEmergency},
		{"urgente", vocab.PriorityUrgent},
		{"Internado", vocab.PriorityInpatient},
		{"qualquer coisa", vocab.PriorityRoutine},
		{"", vocab.PriorityRoutine},
	}

	refs := fixtureSet()
	engine := rules.NewEngine()

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rec := exam.Record{Priority: tt.raw}
			if _, err := engine.ApplyRule("map_priority", &rec, refs); err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if rec.Priority != string(tt.want) {
				t.Errorf("got %q, want %q", rec.Priority, tt.want)
			}
		})
	}
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*exam.Record)
		rule   string
	}{
		{"empty client", func(r *exam.Record) { r.ClientName = "  " }, "normalize_client_name"},
		{"empty description", func(r *exam.Record) { r.StudyDescription = "" }, "enforce_modality_prefix"},
		{"unknown description", func(r *exam.Record) { r.StudyDescription = "TC TORAX"; r.Category = "" }, "assign_category"},
		{"unregistered client", func(r *exam.Record) { r.ClientName = "DESCONHECIDO" }, "validate_client"},
		{"inactive client", func(r *exam.Record) { r.ClientName = "CLINICA ENCERRADA" }, "validate_client"},
		{"invalid modality", func(r *exam.Record) { r.Modality = "XX"; r.StudyDescription = "MAMOGRAFIA BILATERAL" }, "validate_modality"},
	}

	refs := fixtureSet()
	engine := rules.NewEngine()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			out := engine.Apply(&rec, refs)
			if !out.Rejected {
				t.Fatal("expected rejection")
			}
			if out.Rule != tt.rule {
				t.Errorf("rejected by %s (%s), want %s", out.Rule, out.Reason, tt.rule)
			}
		})
	}
}

func TestInactiveClientWithFollowUpPasses(t *testing.T) {
	refs := fixtureSet()
	engine := rules.NewEngine()

	rec := validRecord()
	rec.ClientName = "CLINICA EM ACERTO"

	out := engine.Apply(&rec, refs)
	if out.Rejected {
		t.Fatalf("rejected by %s: %s", out.Rule, out.Reason)
	}
}

func TestSplitCandidatePassesWithoutCategory(t *testing.T) {
	refs := fixtureSet()
	engine := rules.NewEngine()

	rec := validRecord()
	rec.StudyDescription = "US ABDOME TOTAL"
	rec.Modality = "US"
	rec.Category = ""

	out := engine.Apply(&rec, refs)
	if out.Rejected {
		t.Fatalf("rejected by %s: %s", out.Rule, out.Reason)
	}
	if rec.Category != "" {
		t.Errorf("split candidate should keep empty category, got %q", rec.Category)
	}
}

func TestTierOrder(t *testing.T) {
	var last rules.Tier
	for _, r := range rules.Table() {
		if r.Tier < last {
			t.Fatalf("rule %s tier %d precedes tier %d", r.Name, r.Tier, last)
		}
		last = r.Tier
	}
}

func TestApplyRuleUnknown(t *testing.T) {
	engine := rules.NewEngine()
	rec := validRecord()

	_, err := engine.ApplyRule("nonexistent", &rec, fixtureSet())
	if !errors.Is(err, rules.ErrUnknownRule) {
		t.Errorf("got %v, want ErrUnknownRule", err)
	}
}
