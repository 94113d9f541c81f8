// Package config provides unified configuration loading for Lectern.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for Lectern.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Tasks     TasksConfig     `yaml:"tasks"`
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

// StorageConfig holds relational store settings.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// TasksConfig holds task store and worker settings.
type TasksConfig struct {
	Store         string        `yaml:"store"` // memory or redis
	Redis         RedisConfig   `yaml:"redis"`
	MaxConcurrent int64         `yaml:"max_concurrent"`
	Retention     time.Duration `yaml:"retention"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ProvidersConfig holds generative-AI provider settings.
type ProvidersConfig struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Google    GoogleConfig    `yaml:"google"`
}

// AnthropicConfig holds the text-completion provider settings.
type AnthropicConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GoogleConfig holds the vision and image-synthesis provider settings.
type GoogleConfig struct {
	APIKey        string `yaml:"api_key"`
	AnalysisModel string `yaml:"analysis_model"`
	ImageModel    string `yaml:"image_model"`
}

// PipelineConfig holds generation pipeline settings.
type PipelineConfig struct {
	WorkDir               string  `yaml:"work_dir"`
	MinImageWidth         int     `yaml:"min_image_width"`
	MinImageHeight        int     `yaml:"min_image_height"`
	TargetSlides          int     `yaml:"target_slides"`
	TargetDurationMinutes int     `yaml:"target_duration_minutes"`
	CaptionRatePerSec     float64 `yaml:"caption_rate_per_sec"`
	SynthesisIntervalMS   int     `yaml:"synthesis_interval_ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   60 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxUploadBytes:   50 * 1024 * 1024,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "lectern.sqlite",
				MaxOpenConns: 1,
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Tasks: TasksConfig{
			Store:         "memory",
			MaxConcurrent: 4,
			Retention:     24 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Providers: ProvidersConfig{
			Anthropic: AnthropicConfig{
				BaseURL:   "https://api.anthropic.com",
				Model:     "claude-opus-4-5-20251101",
				MaxTokens: 32000,
				Timeout:   600 * time.Second,
			},
			Google: GoogleConfig{
				AnalysisModel: "gemini-3-flash-preview",
				ImageModel:    "gemini-3-pro-image-preview",
			},
		},
		Pipeline: PipelineConfig{
			WorkDir:               "./data",
			MinImageWidth:         200,
			MinImageHeight:        200,
			TargetSlides:          20,
			TargetDurationMinutes: 20,
			CaptionRatePerSec:     2,
			SynthesisIntervalMS:   1500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "postgres" {
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}

	if c.Tasks.Store != "memory" && c.Tasks.Store != "redis" {
		return fmt.Errorf("invalid task store: %s", c.Tasks.Store)
	}

	if c.Tasks.MaxConcurrent < 1 {
		return fmt.Errorf("tasks.max_concurrent must be at least 1")
	}

	if c.Pipeline.MinImageWidth < 1 || c.Pipeline.MinImageHeight < 1 {
		return fmt.Errorf("pipeline minimum image dimensions must be positive")
	}

	if c.Providers.Anthropic.MaxTokens < 1 {
		return fmt.Errorf("providers.anthropic.max_tokens must be positive")
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Storage.Driver == "sqlite" {
		return c.Storage.SQLite.Path
	}
	return c.Storage.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LECTERN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("LECTERN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("LECTERN_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}

	if v := os.Getenv("LECTERN_SQLITE_PATH"); v != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLite.Path = v
	}

	if v := os.Getenv("LECTERN_POSTGRES_DSN"); v != "" {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.Postgres.DSN = v
	}

	if v := os.Getenv("LECTERN_TASK_STORE"); v != "" {
		cfg.Tasks.Store = v
	}

	if v := os.Getenv("LECTERN_REDIS_ADDR"); v != "" {
		cfg.Tasks.Store = "redis"
		cfg.Tasks.Redis.Addr = v
	}

	if v := os.Getenv("LECTERN_MAX_CONCURRENT_TASKS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Tasks.MaxConcurrent = n
		}
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
	}

	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		cfg.Providers.Anthropic.BaseURL = v
	}

	if v := os.Getenv("CLAUDE_MODEL"); v != "" {
		cfg.Providers.Anthropic.Model = v
	}

	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Providers.Google.APIKey = v
	}

	if v := os.Getenv("GEMINI_ANALYSIS_MODEL"); v != "" {
		cfg.Providers.Google.AnalysisModel = v
	}

	if v := os.Getenv("GEMINI_IMAGE_MODEL"); v != "" {
		cfg.Providers.Google.ImageModel = v
	}

	if v := os.Getenv("LECTERN_WORK_DIR"); v != "" {
		cfg.Pipeline.WorkDir = v
	}

	if v := os.Getenv("LECTERN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LECTERN_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
