package period_test

import (
	"testing"
	"time"

	"github.com/tbessa/volumetry/pkg/period"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		input   string
		year    int
		month   time.Month
		wantErr bool
	}{
		{"2025-07", 2025, time.July, false},
		{"2025-01", 2025, time.January, false},
		{"2025-13", 0, 0, true},
		{"07/2025", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := period.ParseReference(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if ref.Year != tt.year || ref.Month != tt.month {
				t.Errorf("got %d-%d, want %d-%d", ref.Year, ref.Month, tt.year, tt.month)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name  string
		ref   string
		start time.Time
		end   time.Time
	}{
		{"mid year", "2025-07", date(2025, time.June, 8), date(2025, time.July, 7)},
		{"january rollover", "2025-01", date(2024, time.December, 8), date(2025, time.January, 7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := period.ParseReference(tt.ref)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			w := ref.Window()
			if !w.Start.Equal(tt.start) {
				t.Errorf("start: got %v, want %v", w.Start, tt.start)
			}
			if !w.End.Equal(tt.end) {
				t.Errorf("end: got %v, want %v", w.End, tt.end)
			}
		})
	}
}

func TestReferenceForDate(t *testing.T) {
	tests := []struct {
		name  string
		date  time.Time
		year  int
		month time.Month
	}{
		{"after window start", date(2025, time.July, 10), 2025, time.July},
		{"on window start", date(2025, time.July, 8), 2025, time.July},
		{"before window start", date(2025, time.July, 5), 2025, time.June},
		{"last open day", date(2025, time.July, 7), 2025, time.June},
		{"january before start", date(2025, time.January, 3), 2024, time.December},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := period.ReferenceForDate(tt.date)
			if ref.Year != tt.year || ref.Month != tt.month {
				t.Errorf("got %v, want %d-%d", ref, tt.year, tt.month)
			}
		})
	}
}

func TestContains(t *testing.T) {
	ref, err := period.ParseReference("2025-07")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	w := ref.Window()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"start boundary", date(2025, time.June, 8), true},
		{"end boundary", date(2025, time.July, 7), true},
		{"inside", date(2025, time.June, 20), true},
		{"day before start", date(2025, time.June, 7), false},
		{"day after end", date(2025, time.July, 8), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.date); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForDateMatchesReferenceWindow(t *testing.T) {
	d := date(2025, time.July, 5)
	want := period.ReferenceForDate(d).Window()
	got := period.ForDate(d)
	if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
		t.Errorf("got %v, want %v", got, want)
	}
}
