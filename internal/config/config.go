// Package config loads the engine's startup configuration: executor
// defaults, the approval service's timeout and sweep schedule, the
// store's backpressure sizing, and structured-logging options, composed
// into sub-configs the way the teacher's own config package lays out its
// server/gateway/database sections.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/convengine/engine/internal/executor"
	"github.com/convengine/engine/internal/observability"
)

// Config is the engine's root configuration document.
type Config struct {
	Executor ExecutorConfig          `yaml:"executor"`
	Approval ApprovalConfig          `yaml:"approval"`
	Store    StoreConfig             `yaml:"store"`
	Logging  observability.LogConfig `yaml:"logging"`
	Tracing  TracingConfig           `yaml:"tracing"`
}

// ExecutorConfig mirrors executor.Config's yaml-addressable fields.
type ExecutorConfig struct {
	DefaultTimeout         time.Duration `yaml:"default_timeout"`
	ApprovalTimeoutSeconds int           `yaml:"approval_timeout_seconds"`
	BackendPort            int           `yaml:"backend_port"`
	LogBaseDir             string        `yaml:"log_base_dir"`
	SpawnsPerSecond        float64       `yaml:"spawns_per_second"`
	SpawnBurst             int           `yaml:"spawn_burst"`
}

// ApprovalConfig configures the approval service's timeout, its stale-
// request sweep schedule (a cron expression consumed by
// approval.NewSweeper), and whether to bypass interactive approval
// entirely.
type ApprovalConfig struct {
	DefaultTimeoutSeconds int    `yaml:"default_timeout_seconds"`
	SweepSchedule         string `yaml:"sweep_schedule"`
	AutoApprove           bool   `yaml:"auto_approve"`
}

// StoreConfig configures the in-memory message store.
type StoreConfig struct {
	SubscriberBufferSize int `yaml:"subscriber_buffer_size"`
}

// TracingConfig configures the otel tracer provider.
type TracingConfig struct {
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	SamplingRate   float64 `yaml:"sampling_rate"`
}

// Default returns the engine's built-in defaults, the same values each
// subsystem falls back to when its own zero-value defaulting pass runs
// (executor.DefaultConfig, approval.DefaultTimeout).
func Default() Config {
	return Config{
		Executor: ExecutorConfig{
			DefaultTimeout:         30 * time.Minute,
			ApprovalTimeoutSeconds: 300,
			LogBaseDir:             "/tmp/convengine",
		},
		Approval: ApprovalConfig{
			DefaultTimeoutSeconds: 300,
			SweepSchedule:         "@every 30s",
		},
		Store: StoreConfig{
			SubscriberBufferSize: 256,
		},
		Logging: observability.LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName:  "convengine",
			SamplingRate: 1.0,
		},
	}
}

// Load reads path, expands ${VAR}/$VAR references against the process
// environment (the teacher's config loader does the same before parsing),
// and unmarshals YAML on top of Default()'s values so a config file only
// needs to name the fields it overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ToExecutorConfig builds an executor.Config from c's Executor section.
func (c Config) ToExecutorConfig() executor.Config {
	return executor.Config{
		DefaultTimeout:         c.Executor.DefaultTimeout,
		ApprovalTimeoutSeconds: c.Executor.ApprovalTimeoutSeconds,
		BackendPort:            c.Executor.BackendPort,
		LogBaseDir:             c.Executor.LogBaseDir,
		SpawnsPerSecond:        c.Executor.SpawnsPerSecond,
		SpawnBurst:             c.Executor.SpawnBurst,
	}
}
