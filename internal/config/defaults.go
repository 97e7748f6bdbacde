package config

// DefaultThreshold is the relevance threshold used when none is configured.
const DefaultThreshold float32 = 0.7

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "bolt"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "/usr/local/var/zkrag/data/records.db"
	}
	if cfg.Index.MaxElements == 0 {
		cfg.Index.MaxElements = 100000
	}
	if cfg.Index.M == 0 {
		cfg.Index.M = 24
	}
	if cfg.Index.MaxLayers == 0 {
		cfg.Index.MaxLayers = 16
	}
	if cfg.Index.EfConstruction == 0 {
		cfg.Index.EfConstruction = 400
	}
	if cfg.Index.EfSearch == 0 {
		cfg.Index.EfSearch = 16
	}
	if cfg.Index.Normalize == nil {
		t := true
		cfg.Index.Normalize = &t
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 512
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 50
	}
	if cfg.Chunking.Extensions == nil {
		cfg.Chunking.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".odt"}
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 400
	}
	if cfg.Relevance.Threshold == nil {
		t := DefaultThreshold
		cfg.Relevance.Threshold = &t
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
