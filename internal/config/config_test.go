package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/clinicore/medsearch/internal/models"
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

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("chunking defaults: size=%d overlap=%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Search.DenseWeight != 0.7 || cfg.Search.SparseWeight != 0.3 {
		t.Errorf("weight defaults: %f/%f", cfg.Search.DenseWeight, cfg.Search.SparseWeight)
	}
	if cfg.Search.SufficiencyThreshold != 0.3 {
		t.Errorf("threshold default: %f", cfg.Search.SufficiencyThreshold)
	}
	if cfg.Storage.DenseBackend != "memory" {
		t.Errorf("dense backend default: %q", cfg.Storage.DenseBackend)
	}
}

func TestLoad_PathExpansion(t *testing.T) {
	path := writeConfig(t, "storage:\n  database_path: ./db/chunks.db\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database path not expanded: %q", cfg.Storage.DatabasePath)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Ingest.ChunkSize = -1 }},
		{"overlap >= chunk size", func(c *Config) { c.Ingest.ChunkOverlap = 1000 }},
		{"weights not summing to 1", func(c *Config) { c.Search.DenseWeight = 0.5; c.Search.SparseWeight = 0.3 }},
		{"negative weight", func(c *Config) { c.Search.DenseWeight = -0.2; c.Search.SparseWeight = 1.2 }},
		{"bad b", func(c *Config) { c.Search.BM25B = 1.5 }},
		{"zero overfetch", func(c *Config) { c.Search.OverfetchFactor = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			ApplyDefaults(&cfg)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, models.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}
