package config_test

import (
	"testing"
	"time"

	"github.com/tbessa/volumetry/internal/config"
)

func TestPipelineFinalizeDefaults(t *testing.T) {
	cfg := config.PipelineConfig{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"chunk_size", cfg.ChunkSize, 500},
		{"workers", cfg.Workers, 2},
		{"poll_interval", cfg.PollInterval, "5s"},
		{"job_lease", cfg.JobLease, "15m"},
		{"max_attempts", cfg.MaxAttempts, 3},
		{"watchdog_interval", cfg.WatchdogInterval, "1m"},
		{"watchdog_soft", cfg.WatchdogSoft, "10m"},
		{"watchdog_hard", cfg.WatchdogHard, "2h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}

	if cfg.WatchdogHardDuration() != 2*time.Hour {
		t.Errorf("watchdog hard duration: got %v", cfg.WatchdogHardDuration())
	}
}

func TestPipelineFinalizeEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvPipelineChunkSize, "100")
	t.Setenv(config.EnvPipelineWorkers, "4")
	t.Setenv(config.EnvPipelineWatchdogSoft, "5m")
	t.Setenv(config.EnvPipelineWatchdogHard, "1h")

	cfg := config.PipelineConfig{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ChunkSize != 100 || cfg.Workers != 4 {
		t.Errorf("got chunk=%d workers=%d", cfg.ChunkSize, cfg.Workers)
	}
	if cfg.WatchdogSoft != "5m" || cfg.WatchdogHard != "1h" {
		t.Errorf("got soft=%s hard=%s", cfg.WatchdogSoft, cfg.WatchdogHard)
	}
}

func TestPipelineValidateWatchdogThresholds(t *testing.T) {
	cfg := config.PipelineConfig{
		WatchdogSoft: "2h",
		WatchdogHard: "10m",
	}
	if err := cfg.Finalize(); err == nil {
		t.Error("hard threshold below soft threshold must fail validation")
	}
}

func TestPipelineMerge(t *testing.T) {
	cfg := config.PipelineConfig{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	cfg.Merge(&config.PipelineConfig{ChunkSize: 250, WatchdogSoft: "20m"})

	if cfg.ChunkSize != 250 {
		t.Errorf("chunk size: got %d", cfg.ChunkSize)
	}
	if cfg.WatchdogSoft != "20m" {
		t.Errorf("watchdog soft: got %s", cfg.WatchdogSoft)
	}
	if cfg.Workers != 2 {
		t.Errorf("workers overwritten by zero overlay: got %d", cfg.Workers)
	}
}
