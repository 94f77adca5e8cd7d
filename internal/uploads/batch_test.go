package uploads_test

import (
	"testing"

	"github.com/tbessa/volumetry/internal/uploads"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from uploads.Status
		to   uploads.Status
		want bool
	}{
		{"pending to processing", uploads.StatusPending, uploads.StatusProcessing, true},
		{"processing to staging completed", uploads.StatusProcessing, uploads.StatusStagingCompleted, true},
		{"staging completed resumes processing", uploads.StatusStagingCompleted, uploads.StatusProcessing, true},
		{"processing to completed", uploads.StatusProcessing, uploads.StatusCompleted, true},
		{"processing to error", uploads.StatusProcessing, uploads.StatusError, true},
		{"error recovers to completed", uploads.StatusError, uploads.StatusCompleted, true},
		{"error resets to pending", uploads.StatusError, uploads.StatusPending, true},
		{"completed to rollback", uploads.StatusCompleted, uploads.StatusRollbackExecuted, true},
		{"rollback resets to pending", uploads.StatusRollbackExecuted, uploads.StatusPending, true},
		{"cancelled resets to pending", uploads.StatusCancelled, uploads.StatusPending, true},

		{"pending cannot complete", uploads.StatusPending, uploads.StatusCompleted, false},
		{"completed cannot reset directly", uploads.StatusCompleted, uploads.StatusPending, false},
		{"completed cannot error", uploads.StatusCompleted, uploads.StatusError, false},
		{"staging completed cannot complete directly", uploads.StatusStagingCompleted, uploads.StatusCompleted, false},
		{"rollback is terminal except reset", uploads.StatusRollbackExecuted, uploads.StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	terminal := []uploads.Status{
		uploads.StatusCompleted,
		uploads.StatusError,
		uploads.StatusCancelled,
		uploads.StatusRollbackExecuted,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	active := []uploads.Status{
		uploads.StatusPending,
		uploads.StatusProcessing,
		uploads.StatusStagingCompleted,
	}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestExpectedCanonicalCount(t *testing.T) {
	tests := []struct {
		name  string
		batch uploads.Batch
		want  int
	}{
		{
			"from commit counters",
			uploads.Batch{RecordsProcessed: 100, RecordsInserted: 80, RecordsUpdated: 15, RecordsRejected: 5},
			95,
		},
		{
			"from staging counters before commit",
			uploads.Batch{RecordsProcessed: 100, RecordsRejected: 5},
			95,
		},
		{
			"nothing staged",
			uploads.Batch{},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.batch.ExpectedCanonicalCount(); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
