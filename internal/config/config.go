// Package config provides configuration loading and structs for the medsearch engine.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clinicore/medsearch/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the chunk store and index files.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	DenseIndexPath  string `yaml:"dense_index_path"`
	SparseIndexPath string `yaml:"sparse_index_path"`
	// DenseBackend selects the dense index implementation: "memory" or "chromem".
	DenseBackend string `yaml:"dense_backend"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider selects the embedder: "mock" (deterministic, offline) or "onnx".
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// IngestConfig holds chunking and ingestion settings.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	// Concurrency bounds parallel embedding calls during a build.
	Concurrency int      `yaml:"concurrency"`
	Extensions  []string `yaml:"extensions"`
}

// SearchConfig holds retrieval and fusion settings.
type SearchConfig struct {
	TopK                 int     `yaml:"top_k"`
	OverfetchFactor      int     `yaml:"overfetch_factor"`
	DenseWeight          float64 `yaml:"dense_weight"`
	SparseWeight         float64 `yaml:"sparse_weight"`
	BM25K1               float64 `yaml:"bm25_k1"`
	BM25B                float64 `yaml:"bm25_b"`
	SufficiencyThreshold float64 `yaml:"sufficiency_threshold"`
}

// WatchConfig holds directory watch settings for automatic re-ingestion.
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

// Load reads and parses the config file at path, expands paths relative to
// the config directory, applies defaults, and validates.
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

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.DenseIndexPath = expandPath(cfg.Storage.DenseIndexPath, configDir)
	cfg.Storage.SparseIndexPath = expandPath(cfg.Storage.SparseIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks parameter preconditions. Violations wrap
// models.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be > 0, got %d", models.ErrInvalidConfiguration, c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d", models.ErrInvalidConfiguration, c.Ingest.ChunkOverlap)
	}
	if c.Search.DenseWeight < 0 || c.Search.SparseWeight < 0 {
		return fmt.Errorf("%w: fusion weights must be non-negative", models.ErrInvalidConfiguration)
	}
	if sum := c.Search.DenseWeight + c.Search.SparseWeight; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: dense_weight + sparse_weight must equal 1.0, got %g", models.ErrInvalidConfiguration, sum)
	}
	if c.Search.BM25K1 <= 0 {
		return fmt.Errorf("%w: bm25_k1 must be > 0", models.ErrInvalidConfiguration)
	}
	if c.Search.BM25B < 0 || c.Search.BM25B > 1 {
		return fmt.Errorf("%w: bm25_b must be in [0, 1]", models.ErrInvalidConfiguration)
	}
	if c.Search.OverfetchFactor < 1 {
		return fmt.Errorf("%w: overfetch_factor must be >= 1", models.ErrInvalidConfiguration)
	}
	if c.Search.SufficiencyThreshold < 0 || c.Search.SufficiencyThreshold > 1 {
		return fmt.Errorf("%w: sufficiency_threshold must be in [0, 1]", models.ErrInvalidConfiguration)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home directory.
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
