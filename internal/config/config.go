// Package config provides configuration loading and structs for the ragpipe server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Reranking   RerankingConfig   `yaml:"reranking"`
	Generation  GenerationConfig  `yaml:"generation"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig selects where chunk and embedding artifacts are persisted.
type StorageConfig struct {
	Backend      string      `yaml:"backend"` // sqlite, redis or file
	DatabasePath string      `yaml:"database_path"`
	ChunksDir    string      `yaml:"chunks_dir"`
	Redis        RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis chunk store.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// VectorStoreConfig holds vector store engine settings.
type VectorStoreConfig struct {
	Backend   string       `yaml:"backend"` // local, qdrant or milvus
	Path      string       `yaml:"path"`
	BatchSize int          `yaml:"batch_size"`
	Qdrant    QdrantConfig `yaml:"qdrant"`
	Milvus    MilvusConfig `yaml:"milvus"`
}

// QdrantConfig holds qdrant gRPC connection settings.
type QdrantConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	APIKeyEnv string `yaml:"api_key_env"`
	UseTLS    bool   `yaml:"use_tls"`
}

// MilvusConfig holds milvus connection settings.
type MilvusConfig struct {
	Address     string `yaml:"address"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// ChunkingConfig holds the default chunking parameters.
type ChunkingConfig struct {
	Strategy string `yaml:"strategy"`
	Size     int    `yaml:"size"`
	Overlap  int    `yaml:"overlap"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // openai, ollama, hugging_face or mock
	ModelID        string `yaml:"model_id"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	ModelsDir      string `yaml:"models_dir"`
	Dimensions     int    `yaml:"dimensions"`
	MaxInputTokens int    `yaml:"max_input_tokens"`
	CacheSize      int    `yaml:"cache_size"`
}

// RerankingConfig configures the reranking provider.
type RerankingConfig struct {
	Provider  string `yaml:"provider"` // hugging_face_local, bm25 or mock
	ModelID   string `yaml:"model_id"`
	ModelsDir string `yaml:"models_dir"`
	MaxTokens int    `yaml:"max_tokens"`
}

// GenerationConfig configures the LLM provider.
type GenerationConfig struct {
	Provider        string  `yaml:"provider"` // openai or ollama
	ModelID         string  `yaml:"model_id"`
	BaseURL         string  `yaml:"base_url"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	SystemPrompt    string  `yaml:"system_prompt"`
	MaxInputTokens  int     `yaml:"max_input_tokens"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Temperature     float64 `yaml:"temperature"`
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
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
	cfg.Storage.ChunksDir = expandPath(cfg.Storage.ChunksDir, configDir)
	cfg.VectorStore.Path = expandPath(cfg.VectorStore.Path, configDir)
	cfg.Embedding.ModelsDir = expandPath(cfg.Embedding.ModelsDir, configDir)
	cfg.Reranking.ModelsDir = expandPath(cfg.Reranking.ModelsDir, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.VectorStore.BatchSize <= 0 {
		return fmt.Errorf("vector_store.batch_size must be positive, got %d", c.VectorStore.BatchSize)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be in [0, 2], got %v", c.Generation.Temperature)
	}
	return nil
}

// APIKey returns the value of the environment variable named by env, or "".
func APIKey(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
