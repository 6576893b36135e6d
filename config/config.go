package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = "pdfqa"
	ConfigFileName = "config.yaml"
	StateFileName  = "state.gob"

	DefaultAPIURL       = "http://localhost:8000"
	DefaultAcceptedType = "application/pdf"
	DefaultMaxBytes     = 10 * 1024 * 1024
)

// DefaultStages are the cosmetic labels shown while the remote service ingests a document.
var DefaultStages = []string{
	"Extracting text from PDF",
	"Splitting into chunks",
	"Creating embeddings",
	"Storing in database",
	"Finalizing",
}

type Config struct {
	Version int           `yaml:"version"`
	API     APIConfig     `yaml:"api"`
	Upload  UploadConfig  `yaml:"upload"`
	Notify  NotifyConfig  `yaml:"notify"`
	Log     LogConfig     `yaml:"log"`
	Inbox   InboxConfig   `yaml:"inbox"`
	Tracing TracingConfig `yaml:"tracing"`
}

type APIConfig struct {
	URL     string        `yaml:"url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

type UploadConfig struct {
	AcceptedType  string        `yaml:"accepted_type" validate:"required"`
	MaxBytes      int64         `yaml:"max_bytes" validate:"gt=0"`
	RampStep      int           `yaml:"ramp_step" validate:"gt=0,lt=100"`
	RampInterval  time.Duration `yaml:"ramp_interval" validate:"gt=0"`
	RampCap       int           `yaml:"ramp_cap" validate:"gt=0,lt=100"`
	StageInterval time.Duration `yaml:"stage_interval" validate:"gt=0"`
	Stages        []string      `yaml:"stages" validate:"min=1,dive,required"`
}

type NotifyConfig struct {
	Lifetime time.Duration `yaml:"lifetime" validate:"gt=0"`
}

type LogConfig struct {
	File       string `yaml:"file" validate:"required"`
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gt=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

type InboxConfig struct {
	Dir    string   `yaml:"dir,omitempty"`
	Ignore []string `yaml:"ignore,omitempty"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"`
	Service  string `yaml:"service" validate:"required"`
}

func DefaultConfig() *Config {
	stages := make([]string, len(DefaultStages))
	copy(stages, DefaultStages)

	return &Config{
		Version: 1,
		API: APIConfig{
			URL:     DefaultAPIURL,
			Timeout: 2 * time.Minute,
		},
		Upload: UploadConfig{
			AcceptedType:  DefaultAcceptedType,
			MaxBytes:      DefaultMaxBytes,
			RampStep:      10,
			RampInterval:  200 * time.Millisecond,
			RampCap:       90,
			StageInterval: 800 * time.Millisecond,
			Stages:        stages,
		},
		Notify: NotifyConfig{
			Lifetime: 5 * time.Second,
		},
		Log: LogConfig{
			File:       filepath.Join(GetConfigDir(), "pdfqa.log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Tracing: TracingConfig{
			Endpoint: "localhost:4318",
			Service:  "pdfqa",
		},
	}
}

// GetConfigDir returns the per-user directory holding config, state and logs.
func GetConfigDir() string {
	if dir := strings.TrimSpace(os.Getenv("PDFQA_HOME")); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, ConfigDirName)
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), ConfigFileName)
}

func GetStatePath() string {
	return filepath.Join(GetConfigDir(), StateFileName)
}

// Load reads the YAML file at path (or the default location when empty), applies
// .env and environment overrides and validates the result. A missing file is not an
// error: defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if path == "" {
		path = GetConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

var validate = validator.New()

func (c *Config) Validate() error {
	return validate.Struct(c)
}

func (c *Config) applyEnv() {
	if v := firstEnv("PDFQA_API_URL", "NEXT_PUBLIC_API_URL"); v != "" {
		c.API.URL = strings.TrimRight(v, "/")
	}
	if v := firstEnv("PDFQA_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := firstEnv("PDFQA_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := firstEnv("PDFQA_INBOX_DIR"); v != "" {
		c.Inbox.Dir = v
	}
	c.Tracing.Enabled = getEnvBool("OTEL_ENABLED", c.Tracing.Enabled)
	if v := firstEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
