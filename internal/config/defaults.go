package config

// ApplyDefaults sets default values for any zero values in cfg.
// Chunking and fusion defaults follow the knowledge-base ingestion scheme:
// 1000-character windows with 200 overlap, 0.7/0.3 dense/sparse weights,
// and a 0.3 sufficiency threshold on the fused scale.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/db/chunks.db"
	}
	if cfg.Storage.DenseIndexPath == "" {
		cfg.Storage.DenseIndexPath = "./data/indices/dense.bin"
	}
	if cfg.Storage.SparseIndexPath == "" {
		cfg.Storage.SparseIndexPath = "./data/indices/sparse.json"
	}
	if cfg.Storage.DenseBackend == "" {
		cfg.Storage.DenseBackend = "memory"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".pdf", ".txt", ".md", ".docx", ".xlsx"}
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.OverfetchFactor == 0 {
		cfg.Search.OverfetchFactor = 3
	}
	if cfg.Search.DenseWeight == 0 && cfg.Search.SparseWeight == 0 {
		cfg.Search.DenseWeight = 0.7
		cfg.Search.SparseWeight = 0.3
	}
	if cfg.Search.BM25K1 == 0 {
		cfg.Search.BM25K1 = 1.5
	}
	if cfg.Search.BM25B == 0 {
		cfg.Search.BM25B = 0.75
	}
	if cfg.Search.SufficiencyThreshold == 0 {
		cfg.Search.SufficiencyThreshold = 0.3
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = cfg.Ingest.Extensions
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
