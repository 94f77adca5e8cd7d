package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tbessa/volumetry/internal/exclusion"
)

const (
	EnvPipelineChunkSize        = "VOLUMETRY_PIPELINE_CHUNK_SIZE"
	EnvPipelineWorkers          = "VOLUMETRY_PIPELINE_WORKERS"
	EnvPipelinePollInterval     = "VOLUMETRY_PIPELINE_POLL_INTERVAL"
	EnvPipelineJobLease         = "VOLUMETRY_PIPELINE_JOB_LEASE"
	EnvPipelineMaxAttempts      = "VOLUMETRY_PIPELINE_MAX_ATTEMPTS"
	EnvPipelineWatchdogInterval = "VOLUMETRY_PIPELINE_WATCHDOG_INTERVAL"
	EnvPipelineWatchdogSoft     = "VOLUMETRY_PIPELINE_WATCHDOG_SOFT"
	EnvPipelineWatchdogHard     = "VOLUMETRY_PIPELINE_WATCHDOG_HARD"
)

// PipelineConfig holds the processing pipeline parameters: chunking, worker
// pool sizing, watchdog thresholds, and the exclusion filter toggles.
type PipelineConfig struct {
	ChunkSize        int              `toml:"chunk_size"`
	Workers          int              `toml:"workers"`
	PollInterval     string           `toml:"poll_interval"`
	JobLease         string           `toml:"job_lease"`
	MaxAttempts      int              `toml:"max_attempts"`
	WatchdogInterval string           `toml:"watchdog_interval"`
	WatchdogSoft     string           `toml:"watchdog_soft"`
	WatchdogHard     string           `toml:"watchdog_hard"`
	Exclusion        exclusion.Config `toml:"exclusion"`
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *PipelineConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// JobLeaseDuration returns JobLease as a time.Duration.
func (c *PipelineConfig) JobLeaseDuration() time.Duration {
	d, _ := time.ParseDuration(c.JobLease)
	return d
}

// WatchdogIntervalDuration returns WatchdogInterval as a time.Duration.
func (c *PipelineConfig) WatchdogIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.WatchdogInterval)
	return d
}

// WatchdogSoftDuration returns WatchdogSoft as a time.Duration.
func (c *PipelineConfig) WatchdogSoftDuration() time.Duration {
	d, _ := time.ParseDuration(c.WatchdogSoft)
	return d
}

// WatchdogHardDuration returns WatchdogHard as a time.Duration.
func (c *PipelineConfig) WatchdogHardDuration() time.Duration {
	d, _ := time.ParseDuration(c.WatchdogHard)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.ChunkSize != 0 {
		c.ChunkSize = overlay.ChunkSize
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.JobLease != "" {
		c.JobLease = overlay.JobLease
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.WatchdogInterval != "" {
		c.WatchdogInterval = overlay.WatchdogInterval
	}
	if overlay.WatchdogSoft != "" {
		c.WatchdogSoft = overlay.WatchdogSoft
	}
	if overlay.WatchdogHard != "" {
		c.WatchdogHard = overlay.WatchdogHard
	}
	if overlay.Exclusion.RealizationCutoffEnabled {
		c.Exclusion.RealizationCutoffEnabled = true
	}
	if overlay.Exclusion.RealizationCutoff != "" {
		c.Exclusion.RealizationCutoff = overlay.Exclusion.RealizationCutoff
	}
	if overlay.Exclusion.ReportWindowEnabled {
		c.Exclusion.ReportWindowEnabled = true
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 500
	}
	if c.Workers == 0 {
		c.Workers = 2
	}
	if c.PollInterval == "" {
		c.PollInterval = "5s"
	}
	if c.JobLease == "" {
		c.JobLease = "15m"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.WatchdogInterval == "" {
		c.WatchdogInterval = "1m"
	}
	if c.WatchdogSoft == "" {
		c.WatchdogSoft = "10m"
	}
	if c.WatchdogHard == "" {
		c.WatchdogHard = "2h"
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineChunkSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkSize = n
		}
	}
	if v := os.Getenv(EnvPipelineWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvPipelinePollInterval); v != "" {
		c.PollInterval = v
	}
	if v := os.Getenv(EnvPipelineJobLease); v != "" {
		c.JobLease = v
	}
	if v := os.Getenv(EnvPipelineMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvPipelineWatchdogInterval); v != "" {
		c.WatchdogInterval = v
	}
	if v := os.Getenv(EnvPipelineWatchdogSoft); v != "" {
		c.WatchdogSoft = v
	}
	if v := os.Getenv(EnvPipelineWatchdogHard); v != "" {
		c.WatchdogHard = v
	}
}

func (c *PipelineConfig) validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("invalid chunk_size: %d", c.ChunkSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	for name, value := range map[string]string{
		"poll_interval":     c.PollInterval,
		"job_lease":         c.JobLease,
		"watchdog_interval": c.WatchdogInterval,
		"watchdog_soft":     c.WatchdogSoft,
		"watchdog_hard":     c.WatchdogHard,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.WatchdogHardDuration() <= c.WatchdogSoftDuration() {
		return fmt.Errorf("watchdog_hard must exceed watchdog_soft")
	}
	return nil
}
