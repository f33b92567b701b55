// Package config loads the migration run's configuration from YAML,
// applying defaults for the recognized options in spec §6.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConflictStrategy mirrors the recognized `conflict_strategy` option.
type ConflictStrategy string

const (
	ConflictDropAndCreate  ConflictStrategy = "DROP_AND_CREATE"
	ConflictSkipExisting   ConflictStrategy = "SKIP_EXISTING"
	ConflictCreateOrAlter  ConflictStrategy = "CREATE_OR_ALTER"
	ConflictFailOnConflict ConflictStrategy = "FAIL_ON_CONFLICT"
)

// SourceConfig describes how to reach the Oracle source.
type SourceConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Service string `yaml:"service"`
	User    string `yaml:"user"`
	// Password is intentionally left for the credential-prompting
	// collaborator (out of scope, §1) to populate at runtime; it is not
	// read from this file.
	Password string `yaml:"-"`
}

// TargetConfig describes how to reach the SQL Server target.
type TargetConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Trusted  bool   `yaml:"trusted"`
	Password string `yaml:"-"`
}

// MigrationConfig holds the recognized options from spec §6.
type MigrationConfig struct {
	MaxRepairAttempts  int              `yaml:"max_repair_attempts"`
	MaxDependencyCycles int             `yaml:"max_dependency_cycles"`
	BatchSize          int              `yaml:"batch_size"`
	ConflictStrategy   ConflictStrategy `yaml:"conflict_strategy"`
	UseLLMRepair       *bool            `yaml:"use_llm_repair"`
	UseWebSearch       *bool            `yaml:"use_web_search"`
	ResolutionTimeout  time.Duration    `yaml:"resolution_timeout"`
	DefaultSchema      string           `yaml:"default_schema"`
}

// ConcurrencyConfig bounds the per-kind worker pool (§5).
type ConcurrencyConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// LLMConfig shapes the Translator's/Root-Cause Analyzer's LLM backend.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"-"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig controls where per-run artifacts and SharedMemory land.
type OutputConfig struct {
	RunDirRoot       string `yaml:"run_dir_root"`
	SharedMemoryPath string `yaml:"shared_memory_path"`
}

// Config is the top-level migration configuration document.
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Target      TargetConfig      `yaml:"target"`
	Migration   MigrationConfig   `yaml:"migration"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	LLM         LLMConfig         `yaml:"llm"`
	Logging     LoggingConfig     `yaml:"logging"`
	Output      OutputConfig      `yaml:"output"`
}

// Load reads and unmarshals a YAML config file, then applies the defaults
// named in spec §6.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Migration.MaxRepairAttempts == 0 {
		cfg.Migration.MaxRepairAttempts = 3
	}
	if cfg.Migration.MaxDependencyCycles == 0 {
		cfg.Migration.MaxDependencyCycles = 3
	}
	if cfg.Migration.BatchSize == 0 {
		cfg.Migration.BatchSize = 1000
	}
	if cfg.Migration.ConflictStrategy == "" {
		cfg.Migration.ConflictStrategy = ConflictCreateOrAlter
	}
	if cfg.Migration.UseLLMRepair == nil {
		t := true
		cfg.Migration.UseLLMRepair = &t
	}
	if cfg.Migration.UseWebSearch == nil {
		t := true
		cfg.Migration.UseWebSearch = &t
	}
	if cfg.Migration.ResolutionTimeout == 0 {
		cfg.Migration.ResolutionTimeout = 30 * time.Second
	}
	if cfg.Migration.DefaultSchema == "" {
		cfg.Migration.DefaultSchema = "dbo"
	}
	if cfg.Concurrency.PoolSize == 0 {
		cfg.Concurrency.PoolSize = 1
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Output.RunDirRoot == "" {
		cfg.Output.RunDirRoot = "."
	}
	if cfg.Output.SharedMemoryPath == "" {
		cfg.Output.SharedMemoryPath = "output/shared_memory.json"
	}
}

// BatchSizeInRange clamps BatchSize to the recognized 100-10000 range
// (§4.13 step 4).
func (m MigrationConfig) BatchSizeInRange() int {
	if m.BatchSize < 100 {
		return 100
	}
	if m.BatchSize > 10000 {
		return 10000
	}
	return m.BatchSize
}
