// Package config loads and validates stagehand configuration.
//
// Configuration is merged from three layers, later layers winning:
// user config (~/.stagehand/config.yaml), project config
// (.stagehand.yaml at the repo root), and STAGEHAND_* environment
// variables. The merged value is validated once at load and treated
// as read-only afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values exported for documentation and validation.
const (
	DefaultBatchSize        = 50
	DefaultMaxFileThreshold = 500
	DefaultMaxParallelJobs  = 4
	DefaultMaxSubjectLength = 72
	DefaultMessageTemplate  = "{type}({scope}): update {keywords}"
	DefaultLargeFileLimit   = 10 << 20 // blocking
	DefaultWarnFileLimit    = 1 << 20  // advisory
	DefaultAuthorName       = "stagehand"
	DefaultAuthorEmail      = "stagehand@localhost"

	userConfigDirName     = ".stagehand"
	projectConfigFileName = ".stagehand.yaml"
)

// Config is the complete stagehand configuration.
type Config struct {
	Staging    StagingConfig    `yaml:"staging"`
	Message    MessageConfig    `yaml:"message"`
	Validation ValidationConfig `yaml:"validation"`
	Author     AuthorConfig     `yaml:"author"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StagingConfig controls staging strategy selection and batch execution.
type StagingConfig struct {
	BatchSize        int  `yaml:"batch_size"`
	MaxFileThreshold int  `yaml:"max_file_threshold"`
	MaxParallelJobs  int  `yaml:"max_parallel_jobs"`
	ParallelEnabled  bool `yaml:"parallel_enabled"`
}

// MessageConfig controls commit message synthesis and optimization.
type MessageConfig struct {
	Template         string `yaml:"template"`
	MaxSubjectLength int    `yaml:"max_subject_length"`
	Capitalize       bool   `yaml:"capitalize"`
	StripPeriod      bool   `yaml:"strip_period"`
	Truncate         bool   `yaml:"truncate"`
	PrependScope     bool   `yaml:"prepend_scope"`
	Conventional     bool   `yaml:"conventional"`
}

// ValidationConfig controls pre-commit validation thresholds.
type ValidationConfig struct {
	LargeFileLimit int64 `yaml:"large_file_limit"`
	WarnFileLimit  int64 `yaml:"warn_file_limit"`
	ScanSecrets    bool  `yaml:"scan_secrets"`
	ScanDebug      bool  `yaml:"scan_debug"`
	FilenameChecks bool  `yaml:"filename_checks"`
}

// AuthorConfig sets the commit author identity used when git has none.
type AuthorConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// LoggingConfig controls the structured event log.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Level   string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Staging: StagingConfig{
			BatchSize:        DefaultBatchSize,
			MaxFileThreshold: DefaultMaxFileThreshold,
			MaxParallelJobs:  DefaultMaxParallelJobs,
			ParallelEnabled:  false,
		},
		Message: MessageConfig{
			Template:         DefaultMessageTemplate,
			MaxSubjectLength: DefaultMaxSubjectLength,
			Capitalize:       true,
			StripPeriod:      true,
			Truncate:         true,
			PrependScope:     true,
			Conventional:     true,
		},
		Validation: ValidationConfig{
			LargeFileLimit: DefaultLargeFileLimit,
			WarnFileLimit:  DefaultWarnFileLimit,
			ScanSecrets:    true,
			ScanDebug:      true,
			FilenameChecks: true,
		},
		Author: AuthorConfig{
			Name:  DefaultAuthorName,
			Email: DefaultAuthorEmail,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
		},
	}
}

// Load builds the effective configuration for the working directory.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom builds the effective configuration rooted at dir (the
// repository root, or the working directory when empty).
func LoadFrom(dir string) (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, userConfigDirName, "config.yaml")
		if err := loadAndMerge(cfg, userPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("user config %s: %w", userPath, err)
		}
	}

	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	if dir != "" {
		projectPath := filepath.Join(dir, projectConfigFileName)
		if err := loadAndMerge(cfg, projectPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("project config %s: %w", projectPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration once at load time.
func (c *Config) Validate() error {
	if c.Staging.BatchSize <= 0 {
		return fmt.Errorf("staging.batch_size must be positive, got %d", c.Staging.BatchSize)
	}
	if c.Staging.MaxFileThreshold < c.Staging.BatchSize {
		return fmt.Errorf("staging.max_file_threshold (%d) must be >= batch_size (%d)",
			c.Staging.MaxFileThreshold, c.Staging.BatchSize)
	}
	if c.Staging.MaxParallelJobs <= 0 {
		return fmt.Errorf("staging.max_parallel_jobs must be positive, got %d", c.Staging.MaxParallelJobs)
	}
	if c.Message.MaxSubjectLength < 20 {
		return fmt.Errorf("message.max_subject_length must be at least 20, got %d", c.Message.MaxSubjectLength)
	}
	if c.Validation.LargeFileLimit <= 0 || c.Validation.WarnFileLimit <= 0 {
		return fmt.Errorf("validation file limits must be positive")
	}
	if c.Validation.WarnFileLimit > c.Validation.LargeFileLimit {
		return fmt.Errorf("validation.warn_file_limit (%d) must not exceed large_file_limit (%d)",
			c.Validation.WarnFileLimit, c.Validation.LargeFileLimit)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug|info|warn|error, got %q", c.Logging.Level)
	}
	return nil
}

// loadAndMerge loads a YAML file and merges set fields into cfg.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Zero-valued fields only win
// when the raw document actually set them.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override == nil {
		return
	}

	if override.Staging.BatchSize != 0 {
		base.Staging.BatchSize = override.Staging.BatchSize
	}
	if override.Staging.MaxFileThreshold != 0 {
		base.Staging.MaxFileThreshold = override.Staging.MaxFileThreshold
	}
	if override.Staging.MaxParallelJobs != 0 {
		base.Staging.MaxParallelJobs = override.Staging.MaxParallelJobs
	}
	if fieldSet(raw, "staging", "parallel_enabled") {
		base.Staging.ParallelEnabled = override.Staging.ParallelEnabled
	}

	if override.Message.Template != "" {
		base.Message.Template = override.Message.Template
	}
	if override.Message.MaxSubjectLength != 0 {
		base.Message.MaxSubjectLength = override.Message.MaxSubjectLength
	}
	for _, f := range []struct {
		name string
		dst  *bool
		src  bool
	}{
		{"capitalize", &base.Message.Capitalize, override.Message.Capitalize},
		{"strip_period", &base.Message.StripPeriod, override.Message.StripPeriod},
		{"truncate", &base.Message.Truncate, override.Message.Truncate},
		{"prepend_scope", &base.Message.PrependScope, override.Message.PrependScope},
		{"conventional", &base.Message.Conventional, override.Message.Conventional},
	} {
		if fieldSet(raw, "message", f.name) {
			*f.dst = f.src
		}
	}

	if override.Validation.LargeFileLimit != 0 {
		base.Validation.LargeFileLimit = override.Validation.LargeFileLimit
	}
	if override.Validation.WarnFileLimit != 0 {
		base.Validation.WarnFileLimit = override.Validation.WarnFileLimit
	}
	for _, f := range []struct {
		name string
		dst  *bool
		src  bool
	}{
		{"scan_secrets", &base.Validation.ScanSecrets, override.Validation.ScanSecrets},
		{"scan_debug", &base.Validation.ScanDebug, override.Validation.ScanDebug},
		{"filename_checks", &base.Validation.FilenameChecks, override.Validation.FilenameChecks},
	} {
		if fieldSet(raw, "validation", f.name) {
			*f.dst = f.src
		}
	}

	if override.Author.Name != "" {
		base.Author.Name = override.Author.Name
	}
	if override.Author.Email != "" {
		base.Author.Email = override.Author.Email
	}

	if fieldSet(raw, "logging", "enabled") {
		base.Logging.Enabled = override.Logging.Enabled
	}
	if override.Logging.Dir != "" {
		base.Logging.Dir = override.Logging.Dir
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
}

// fieldSet reports whether the raw YAML document set the nested key path.
func fieldSet(raw map[string]any, path ...string) bool {
	cur := raw
	for i, key := range path {
		val, ok := cur[key]
		if !ok {
			return false
		}
		if i == len(path)-1 {
			return true
		}
		next, ok := val.(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// applyEnvOverrides applies STAGEHAND_* environment variables, the
// highest-priority layer.
func applyEnvOverrides(cfg *Config) {
	if v := envInt("STAGEHAND_BATCH_SIZE"); v > 0 {
		cfg.Staging.BatchSize = v
	}
	if v := envInt("STAGEHAND_MAX_FILE_THRESHOLD"); v > 0 {
		cfg.Staging.MaxFileThreshold = v
	}
	if v := envInt("STAGEHAND_MAX_PARALLEL_JOBS"); v > 0 {
		cfg.Staging.MaxParallelJobs = v
	}
	if v, ok := envBool("STAGEHAND_PARALLEL"); ok {
		cfg.Staging.ParallelEnabled = v
	}
	if v := os.Getenv("STAGEHAND_TEMPLATE"); v != "" {
		cfg.Message.Template = v
	}
	if v := envInt("STAGEHAND_MAX_SUBJECT"); v > 0 {
		cfg.Message.MaxSubjectLength = v
	}
	if v := os.Getenv("STAGEHAND_AUTHOR_NAME"); v != "" {
		cfg.Author.Name = v
	}
	if v := os.Getenv("STAGEHAND_AUTHOR_EMAIL"); v != "" {
		cfg.Author.Email = v
	}
	if v := os.Getenv("STAGEHAND_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
		cfg.Logging.Enabled = true
	}
	if v := os.Getenv("STAGEHAND_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func envInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
