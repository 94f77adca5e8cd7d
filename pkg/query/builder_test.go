package query_test

import (
	"testing"
	"time"

	"github.com/tbessa/volumetry/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.
		NewProjectionMap("public", "widgets", "w").
		Project("id", "ID").
		Project("name", "Name").
		Project("status", "Status").
		Project("created_at", "CreatedAt")
}

func TestBuildNoConditions(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).Build()

	want := "SELECT w.id, w.name, w.status, w.created_at FROM public.widgets w"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestBuildParameterNumbering(t *testing.T) {
	name := "gear"
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("Status", "active").
		WhereContains("Name", &name).
		Build()

	want := "SELECT w.id, w.name, w.status, w.created_at FROM public.widgets w" +
		" WHERE w.status = $1 AND w.name ILIKE $2"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 2 || args[0] != "active" || args[1] != "%gear%" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestWhereEqualsSkipsNil(t *testing.T) {
	var status *string
	sql, args := query.NewBuilder(testProjection()).
		WhereEquals("Status", status).
		Build()

	want := "SELECT w.id, w.name, w.status, w.created_at FROM public.widgets w"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestWhereIn(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereIn("Status", []any{"pending", "running"}).
		BuildCount()

	want := "SELECT COUNT(*) FROM public.widgets w WHERE w.status IN ($1, $2)"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %v", args)
	}
}

func TestWhereNull(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).
		WhereNull("Name").
		WhereEquals("Status", "active").
		BuildCount()

	want := "SELECT COUNT(*) FROM public.widgets w WHERE w.name IS NULL AND w.status = $1"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %v", args)
	}
}

func TestWhereOutsideRange(t *testing.T) {
	start := time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.July, 7, 0, 0, 0, 0, time.UTC)

	sql, args := query.NewBuilder(testProjection()).
		WhereOutsideRange("CreatedAt", start, end).
		BuildCount()

	want := "SELECT COUNT(*) FROM public.widgets w" +
		" WHERE (w.created_at < $1 OR w.created_at > $2)"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %v", args)
	}
}

func TestBuildPage(t *testing.T) {
	sql, _ := query.NewBuilder(testProjection(),
		query.SortField{Field: "CreatedAt", Descending: true},
	).BuildPage(3, 25)

	want := "SELECT w.id, w.name, w.status, w.created_at FROM public.widgets w" +
		" ORDER BY w.created_at DESC LIMIT 25 OFFSET 50"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
}

func TestOrderByOverridesDefault(t *testing.T) {
	sql, _ := query.NewBuilder(testProjection(),
		query.SortField{Field: "CreatedAt", Descending: true},
	).OrderByFields([]query.SortField{{Field: "Name"}}).Build()

	want := "SELECT w.id, w.name, w.status, w.created_at FROM public.widgets w" +
		" ORDER BY w.name ASC"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
}

func TestBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildSingle("ID", 42)

	want := "SELECT w.id, w.name, w.status, w.created_at FROM public.widgets w WHERE w.id = $1"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != 42 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBuildDelete(t *testing.T) {
	sql, args, ok := query.NewBuilder(testProjection()).
		WhereEquals("Status", "stale").
		BuildDelete()

	if !ok {
		t.Fatal("expected delete statement")
	}
	want := "DELETE FROM public.widgets WHERE status = $1"
	if sql != want {
		t.Errorf("got %q, want %q", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %v", args)
	}
}

func TestBuildDeleteRefusesUnscoped(t *testing.T) {
	_, _, ok := query.NewBuilder(testProjection()).BuildDelete()
	if ok {
		t.Fatal("unscoped delete must not be emitted")
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty", "", nil},
		{"single asc", "name", []query.SortField{{Field: "name"}}},
		{"single desc", "-createdAt", []query.SortField{{Field: "createdAt", Descending: true}}},
		{"mixed", "name,-createdAt", []query.SortField{
			{Field: "name"},
			{Field: "createdAt", Descending: true},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d fields, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
