// Package config provides configuration loading and structs for the fypmatch server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Review    ReviewConfig    `yaml:"review"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// WatchConfig holds settings for directories of approved proposals that are
// ingested automatically while the server runs.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the proposal database and the corpus snapshot.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// EmbeddingConfig selects and tunes the embedding provider.
// Provider is one of "onnx", "openai" or "mock".
type EmbeddingConfig struct {
	Provider      string        `yaml:"provider"`
	ModelID       string        `yaml:"model_id"`
	ModelPath     string        `yaml:"model_path"`
	TokenizerPath string        `yaml:"tokenizer_path"`
	Dimensions    int           `yaml:"dimensions"`
	MaxTokens     int           `yaml:"max_tokens"`
	Pooling       string        `yaml:"pooling"`
	CacheSize     int           `yaml:"cache_size"`
	OpenAIModel   string        `yaml:"openai_model"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// ReviewConfig holds thresholds for the proposal review pipeline.
type ReviewConfig struct {
	DuplicateThreshold float64      `yaml:"duplicate_threshold"`
	PassThreshold      int          `yaml:"pass_threshold"`
	Rubric             RubricConfig `yaml:"rubric"`
}

// RubricConfig holds per-rule point values and minimum section lengths.
// Zero values are replaced by defaults.
type RubricConfig struct {
	HardwareSoftwarePoints   int `yaml:"hardware_software_points"`
	EmergingTechPoints       int `yaml:"emerging_tech_points"`
	ProblemStatementPoints   int `yaml:"problem_statement_points"`
	ObjectivesPoints         int `yaml:"objectives_points"`
	DesignPoints             int `yaml:"design_points"`
	LiteratureReviewPoints   int `yaml:"literature_review_points"`
	SocialImpactPoints       int `yaml:"social_impact_points"`
	ProblemStatementMinWords int `yaml:"problem_statement_min_words"`
	ObjectivesMinWords       int `yaml:"objectives_min_words"`
	DesignMinWords           int `yaml:"design_min_words"`
	LiteratureReviewMinWords int `yaml:"literature_review_min_words"`
}

// SuggestConfig holds title suggestion settings.
type SuggestConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.SnapshotPath = expandPath(cfg.Storage.SnapshotPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	if cfg.Embedding.TokenizerPath != "" {
		cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate checks value ranges that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Review.DuplicateThreshold < -1 || c.Review.DuplicateThreshold > 1 {
		return fmt.Errorf("review.duplicate_threshold must be within [-1,1], got %f", c.Review.DuplicateThreshold)
	}
	if c.Review.PassThreshold < 0 {
		return fmt.Errorf("review.pass_threshold must be >= 0, got %d", c.Review.PassThreshold)
	}
	switch c.Embedding.Provider {
	case ProviderONNX, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: onnx, openai, mock)", c.Embedding.Provider)
	}
	switch c.Embedding.Pooling {
	case PoolingMean, PoolingNone:
	default:
		return fmt.Errorf("unknown embedding pooling %q (supported: mean, none)", c.Embedding.Pooling)
	}
	if c.Suggest.DefaultK > c.Suggest.MaxK {
		return fmt.Errorf("suggest.default_k (%d) exceeds suggest.max_k (%d)", c.Suggest.DefaultK, c.Suggest.MaxK)
	}
	return nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
