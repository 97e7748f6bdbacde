package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
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
  backend: sqlite
  path: "test.db"
index:
  m: 16
  seed: 7
  normalize: false
relevance:
  threshold: 0.55
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path == "" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Index.M != 16 || cfg.Index.Seed != 7 || cfg.Index.EfConstruction != 400 {
		t.Errorf("unexpected index config: %+v", cfg.Index)
	}
	if cfg.Index.NormalizeOrDefault() {
		t.Error("normalize: false should be kept")
	}
	if got := cfg.Relevance.ThresholdOrDefault(); got != 0.55 {
		t.Errorf("threshold = %v, want 0.55", got)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
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
  path: "./data/records.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(path), "data", "records.db")
	if cfg.Storage.Path != want {
		t.Errorf("storage path = %s, want %s", cfg.Storage.Path, want)
	}
}

func TestLoad_watchDirectories(t *testing.T) {
	path := writeConfig(t, `
watch:
  directories: ["./inbox", "/srv/filings"]
  recursive: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(filepath.Dir(path), "inbox"), "/srv/filings"}
	if len(cfg.Watch.Directories) != 2 || cfg.Watch.Directories[0] != want[0] || cfg.Watch.Directories[1] != want[1] {
		t.Errorf("watch directories = %v, want %v", cfg.Watch.Directories, want)
	}
	if !cfg.Watch.Recursive || cfg.Watch.SyncExisting {
		t.Errorf("unexpected watch flags: %+v", cfg.Watch)
	}
	if cfg.Watch.DebounceMs != 400 {
		t.Errorf("debounce = %d, want 400", cfg.Watch.DebounceMs)
	}
}

func TestLoad_zeroThresholdIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "relevance:\n  threshold: 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Relevance.ThresholdOrDefault(); got != 0 {
		t.Errorf("threshold = %v, want 0", got)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := map[string]string{
		"backend":   "storage:\n  backend: leveldb\n",
		"m":         "index:\n  m: 1\n",
		"overlap":   "chunking:\n  chunk_size: 10\n  chunk_overlap: 10\n",
		"threshold": "relevance:\n  threshold: 1.5\n",
		"debounce":  "watch:\n  debounce_ms: -5\n",
		"yaml":      "server: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
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
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "bolt" {
		t.Errorf("default backend: got %s", cfg.Storage.Backend)
	}
	if cfg.Index.M != 24 || cfg.Index.MaxLayers != 16 || cfg.Index.EfConstruction != 400 || cfg.Index.EfSearch != 16 {
		t.Errorf("default index params: got %+v", cfg.Index)
	}
	if !cfg.Index.NormalizeOrDefault() {
		t.Error("normalize should default to true")
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Chunking.ChunkSize != 512 || cfg.Chunking.ChunkOverlap != 50 {
		t.Errorf("default chunking: got %+v", cfg.Chunking)
	}
	if cfg.Relevance.ThresholdOrDefault() != DefaultThreshold {
		t.Errorf("default threshold: got %v", cfg.Relevance.ThresholdOrDefault())
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSave_roundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := Default()
	cfg.Storage.Path = filepath.Join(dir, "records.db")
	cfg.Index.Seed = 99
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ef_construction: 400") {
		t.Errorf("saved yaml missing index settings:\n%s", data)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Index.Seed != 99 || loaded.Storage.Path != cfg.Storage.Path {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
