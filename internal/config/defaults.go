package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TimeoutSeconds == 0 {
		cfg.Server.TimeoutSeconds = 120
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/ragpipe/data/db/chunks.db"
	}
	if cfg.Storage.ChunksDir == "" {
		cfg.Storage.ChunksDir = "/usr/local/var/ragpipe/data/chunks"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = "ragpipe"
	}
	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = "local"
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "/usr/local/var/ragpipe/data/vectors"
	}
	if cfg.VectorStore.BatchSize == 0 {
		cfg.VectorStore.BatchSize = 100
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}
	if cfg.VectorStore.Milvus.Address == "" {
		cfg.VectorStore.Milvus.Address = "localhost:19530"
	}
	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = "recursive"
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 100
	}
	if cfg.Chunking.Overlap == 0 && cfg.Chunking.Size > 20 {
		cfg.Chunking.Overlap = 20
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.ModelID == "" {
		cfg.Embedding.ModelID = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.ModelsDir == "" {
		cfg.Embedding.ModelsDir = "/usr/local/var/ragpipe/models/embedding"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxInputTokens == 0 {
		cfg.Embedding.MaxInputTokens = 512
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Reranking.Provider == "" {
		cfg.Reranking.Provider = "bm25"
	}
	if cfg.Reranking.ModelID == "" {
		cfg.Reranking.ModelID = "ms-marco-MiniLM-L-6-v2"
	}
	if cfg.Reranking.ModelsDir == "" {
		cfg.Reranking.ModelsDir = "/usr/local/var/ragpipe/models/reranking"
	}
	if cfg.Reranking.MaxTokens == 0 {
		cfg.Reranking.MaxTokens = 512
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "openai"
	}
	if cfg.Generation.ModelID == "" {
		cfg.Generation.ModelID = "gpt-4-turbo"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.MaxInputTokens == 0 {
		cfg.Generation.MaxInputTokens = 4096
	}
	if cfg.Generation.MaxOutputTokens == 0 {
		cfg.Generation.MaxOutputTokens = 512
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.1
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
