package config

// DefaultMethods is the full method set queried when none is configured.
var DefaultMethods = []string{"bm25", "tfidf", "flash", "fulltext", "fuzzy", "embedding", "dpr", "encoder"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/clausematch/data/runs.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/clausematch/data/unified_index.bin"
	}
	if cfg.Extraction.MinChars == 0 {
		cfg.Extraction.MinChars = 100
	}
	if cfg.Extraction.MinWords == 0 {
		cfg.Extraction.MinWords = 30
	}
	if cfg.Extraction.OutputDir == "" {
		cfg.Extraction.OutputDir = "/usr/local/var/clausematch/output"
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
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Device == "" {
		cfg.Embedding.Device = "cpu"
	}
	if len(cfg.Retrieval.Methods) == 0 {
		cfg.Retrieval.Methods = append([]string(nil), DefaultMethods...)
	}
	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 5
	}
	if cfg.Analysis.MinThreshold == 0 {
		cfg.Analysis.MinThreshold = 10
	}
	if cfg.Analysis.MinFrequency == 0 {
		cfg.Analysis.MinFrequency = 1
	}
	if cfg.Analysis.TopNDocs == 0 {
		cfg.Analysis.TopNDocs = 5
	}
	if cfg.Analysis.TopMMethods == 0 {
		cfg.Analysis.TopMMethods = 3
	}
}
