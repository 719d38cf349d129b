package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
embedding:
  provider: mock
  retry_delay: 500ms
review:
  duplicate_threshold: 0.85
  pass_threshold: 50
  rubric:
    design_points: 15
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Embedding.RetryDelay != 500*time.Millisecond {
		t.Errorf("retry_delay = %v, want 500ms", cfg.Embedding.RetryDelay)
	}
	if cfg.Review.DuplicateThreshold != 0.85 || cfg.Review.PassThreshold != 50 {
		t.Errorf("review config: %+v", cfg.Review)
	}
	if cfg.Review.Rubric.DesignPoints != 15 {
		t.Errorf("design_points = %d, want 15", cfg.Review.Rubric.DesignPoints)
	}
	if cfg.Review.Rubric.HardwareSoftwarePoints != 20 {
		t.Errorf("unset rubric points should default, got %d", cfg.Review.Rubric.HardwareSoftwarePoints)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, `
debug: true
embedding:
  provider: mock
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/proposals.db"
  snapshot_path: "./data/vectorized_proposals.json"
embedding:
  provider: mock
watch:
  directories: ["./approved"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "proposals.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "vectorized_proposals.json"); cfg.Storage.SnapshotPath != want {
		t.Errorf("snapshot_path = %s, want %s", cfg.Storage.SnapshotPath, want)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "approved") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
}

func TestLoad_rejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "embedding:\n  provider: word2vec\n"},
		{"threshold out of range", "embedding:\n  provider: mock\nreview:\n  duplicate_threshold: 1.5\n"},
		{"negative pass threshold", "embedding:\n  provider: mock\nreview:\n  pass_threshold: -1\n"},
		{"default k above max", "embedding:\n  provider: mock\nsuggest:\n  default_k: 10\n  max_k: 5\n"},
		{"unknown pooling", "embedding:\n  provider: onnx\n  pooling: max\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 5001 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != ProviderONNX || cfg.Embedding.ModelID != DefaultModelID {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.Pooling != PoolingMean {
		t.Errorf("default pooling: got %q", cfg.Embedding.Pooling)
	}
	if cfg.Review.DuplicateThreshold != 0.8 {
		t.Errorf("default duplicate threshold: got %f", cfg.Review.DuplicateThreshold)
	}
	if cfg.Review.PassThreshold != 60 {
		t.Errorf("default pass threshold: got %d", cfg.Review.PassThreshold)
	}
	if cfg.Review.Rubric != DefaultRubric() {
		t.Errorf("default rubric: got %+v", cfg.Review.Rubric)
	}
	if cfg.Suggest.DefaultK != 3 || cfg.Suggest.MaxK != 50 {
		t.Errorf("default suggest: got %+v", cfg.Suggest)
	}
	if len(cfg.Watch.Extensions) != 4 || cfg.Watch.Extensions[0] != ".pdf" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
}

func TestDefaultRubric_MaxScore(t *testing.T) {
	r := DefaultRubric()
	total := r.HardwareSoftwarePoints + r.EmergingTechPoints + r.ProblemStatementPoints +
		r.ObjectivesPoints + r.DesignPoints + r.LiteratureReviewPoints + r.SocialImpactPoints
	if total != 80 {
		t.Errorf("rubric max = %d, want 80", total)
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:    ServerConfig{Host: "localhost", Port: 9090},
		Storage:   StorageConfig{DatabasePath: "/tmp/db"},
		Embedding: EmbeddingConfig{Provider: ProviderMock},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
