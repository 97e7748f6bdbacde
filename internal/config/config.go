// Package config provides configuration loading and structs for the zkrag server and CLI.
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
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Relevance RelevanceConfig `yaml:"relevance"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the durable record store.
type StorageConfig struct {
	Backend string `yaml:"backend"` // bolt or sqlite
	Path    string `yaml:"path"`
}

// IndexConfig holds HNSW parameters.
type IndexConfig struct {
	MaxElements    int    `yaml:"max_elements"`
	M              int    `yaml:"m"`
	MaxLayers      int    `yaml:"max_layers"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch       int    `yaml:"ef_search"`
	Seed           uint64 `yaml:"seed"`
	Normalize      *bool  `yaml:"normalize"`
}

// NormalizeOrDefault returns whether vectors are unit-normalized inside the
// index; defaults to true when unset.
func (c *IndexConfig) NormalizeOrDefault() bool {
	if c.Normalize != nil {
		return *c.Normalize
	}
	return true
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Dimensions int `yaml:"dimensions"`
	CacheSize  int `yaml:"cache_size"`
}

// ChunkingConfig holds word-window chunking settings.
type ChunkingConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Extensions   []string `yaml:"extensions"`
}

// SearchConfig holds result limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// RelevanceConfig holds the relevance decision threshold.
type RelevanceConfig struct {
	Threshold *float32 `yaml:"threshold"`
}

// ThresholdOrDefault returns the configured threshold, or 0.7 when unset.
func (c *RelevanceConfig) ThresholdOrDefault() float32 {
	if c.Threshold != nil {
		return *c.Threshold
	}
	return DefaultThreshold
}

// WatchConfig lists inbox directories the server ingests from as files arrive.
type WatchConfig struct {
	Directories  []string `yaml:"directories"`
	Recursive    bool     `yaml:"recursive"`
	SyncExisting bool     `yaml:"sync_existing"`
	DebounceMs   int      `yaml:"debounce_ms"`
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
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.Storage.Path = expandPath(cfg.Storage.Path, filepath.Dir(path))
	for i, dir := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(dir, filepath.Dir(path))
	}
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

// Validate rejects settings the store cannot run with.
func Validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("invalid storage backend %q (supported: bolt, sqlite)", cfg.Storage.Backend)
	}
	if cfg.Index.M < 2 {
		return fmt.Errorf("index.m must be at least 2, got %d", cfg.Index.M)
	}
	if cfg.Chunking.ChunkOverlap >= cfg.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			cfg.Chunking.ChunkOverlap, cfg.Chunking.ChunkSize)
	}
	if cfg.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", cfg.Watch.DebounceMs)
	}
	if t := cfg.Relevance.ThresholdOrDefault(); t < -1 || t > 1 {
		return fmt.Errorf("relevance.threshold must be in [-1, 1], got %g", t)
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
