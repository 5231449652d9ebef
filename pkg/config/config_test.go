package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/stagehand/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg.Staging.BatchSize != config.DefaultBatchSize {
		t.Fatalf("unexpected batch size: %d", cfg.Staging.BatchSize)
	}
	if cfg.Staging.MaxFileThreshold != config.DefaultMaxFileThreshold {
		t.Fatalf("unexpected max file threshold: %d", cfg.Staging.MaxFileThreshold)
	}
	if cfg.Staging.ParallelEnabled {
		t.Fatal("parallel staging should be off by default")
	}
	if cfg.Message.MaxSubjectLength != 72 {
		t.Fatalf("unexpected subject length: %d", cfg.Message.MaxSubjectLength)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadHierarchy(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()

	t.Setenv("HOME", home)

	userCfgDir := filepath.Join(home, ".stagehand")
	if err := os.MkdirAll(userCfgDir, 0o755); err != nil {
		t.Fatalf("mkdir user config: %v", err)
	}
	userCfg := `
staging:
  batch_size: 25
  max_parallel_jobs: 8
`
	if err := os.WriteFile(filepath.Join(userCfgDir, "config.yaml"), []byte(userCfg), 0o644); err != nil {
		t.Fatalf("write user config: %v", err)
	}

	projectCfg := `
staging:
  batch_size: 10
message:
  capitalize: false
`
	if err := os.WriteFile(filepath.Join(project, ".stagehand.yaml"), []byte(projectCfg), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	t.Setenv("STAGEHAND_MAX_FILE_THRESHOLD", "200")

	cfg, err := config.LoadFrom(project)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}

	if cfg.Staging.BatchSize != 10 {
		t.Fatalf("expected project batch size override, got %d", cfg.Staging.BatchSize)
	}
	if cfg.Staging.MaxParallelJobs != 8 {
		t.Fatalf("expected user parallel jobs override, got %d", cfg.Staging.MaxParallelJobs)
	}
	if cfg.Staging.MaxFileThreshold != 200 {
		t.Fatalf("expected env threshold override, got %d", cfg.Staging.MaxFileThreshold)
	}
	if cfg.Message.Capitalize {
		t.Fatal("expected project capitalize=false override")
	}
	if !cfg.Message.StripPeriod {
		t.Fatal("untouched defaults should survive merge")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero batch size", func(c *config.Config) { c.Staging.BatchSize = 0 }},
		{"threshold below batch", func(c *config.Config) { c.Staging.MaxFileThreshold = 5; c.Staging.BatchSize = 10 }},
		{"zero parallel jobs", func(c *config.Config) { c.Staging.MaxParallelJobs = 0 }},
		{"tiny subject limit", func(c *config.Config) { c.Message.MaxSubjectLength = 5 }},
		{"warn above blocking", func(c *config.Config) { c.Validation.WarnFileLimit = c.Validation.LargeFileLimit + 1 }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRejectsMalformedProjectConfig(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	if err := os.WriteFile(filepath.Join(project, ".stagehand.yaml"), []byte("staging: [not a map"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	if _, err := config.LoadFrom(project); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
