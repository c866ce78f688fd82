package config

import (
	"os"
	"path/filepath"
	"testing"
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
chunking:
  strategy: sentence
  size: 200
  overlap: 10
embedding:
  provider: ollama
  model_id: nomic-embed-text
vector_store:
  backend: local
  path: "/tmp/vectors"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Chunking.Strategy != "sentence" || cfg.Chunking.Size != 200 || cfg.Chunking.Overlap != 10 {
		t.Errorf("unexpected chunking config: %+v", cfg.Chunking)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.ModelID != "nomic-embed-text" {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.VectorStore.Path != "/tmp/vectors" {
		t.Errorf("absolute path should be kept: %s", cfg.VectorStore.Path)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
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
  database_path: "./data/db/chunks.db"
vector_store:
  path: "./data/vectors"
embedding:
  models_dir: "./models"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "chunks.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "vectors"); cfg.VectorStore.Path != want {
		t.Errorf("vector_store.path = %s, want %s", cfg.VectorStore.Path, want)
	}
	if want := filepath.Join(dir, "models"); cfg.Embedding.ModelsDir != want {
		t.Errorf("embedding.models_dir = %s, want %s", cfg.Embedding.ModelsDir, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap not below size", "chunking:\n  size: 10\n  overlap: 10\n"},
		{"negative size", "chunking:\n  size: -5\n"},
		{"negative batch", "vector_store:\n  batch_size: -1\n"},
		{"temperature out of range", "generation:\n  temperature: 3\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.Chunking.Strategy != "recursive" || cfg.Chunking.Size != 100 || cfg.Chunking.Overlap != 20 {
		t.Errorf("default chunking: got %+v", cfg.Chunking)
	}
	if cfg.VectorStore.Backend != "local" || cfg.VectorStore.BatchSize != 100 {
		t.Errorf("default vector store: got %+v", cfg.VectorStore)
	}
	if cfg.Generation.ModelID != "gpt-4-turbo" || cfg.Generation.MaxInputTokens != 4096 ||
		cfg.Generation.MaxOutputTokens != 512 || cfg.Generation.Temperature != 0.1 {
		t.Errorf("default generation: got %+v", cfg.Generation)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("default storage backend: got %s", cfg.Storage.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_smallChunkKeepsZeroOverlap(t *testing.T) {
	cfg := &Config{Chunking: ChunkingConfig{Size: 10}}
	ApplyDefaults(cfg)
	if cfg.Chunking.Overlap != 0 {
		t.Errorf("overlap should stay 0 for small chunks, got %d", cfg.Chunking.Overlap)
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("RAGPIPE_TEST_KEY", "secret")
	if got := APIKey("RAGPIPE_TEST_KEY"); got != "secret" {
		t.Errorf("APIKey = %q", got)
	}
	if got := APIKey(""); got != "" {
		t.Errorf("empty env name should give empty key, got %q", got)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
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
