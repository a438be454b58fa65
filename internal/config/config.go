// Package config provides configuration loading and structs for clausematch.
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
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the run database and the combined index blob.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
}

// ExtractionConfig holds paragraph extraction settings.
type ExtractionConfig struct {
	SourceDir string `yaml:"source_dir"`
	MinChars  int    `yaml:"min_chars"`
	MinWords  int    `yaml:"min_words"`
	OutputDir string `yaml:"output_dir"`
}

// EmbeddingConfig holds encoder settings for the dense retrieval methods.
// EncoderModelPath is the general-purpose encoder; the DPR paths are the
// dual-encoder document/query models.
type EmbeddingConfig struct {
	EncoderModelPath  string `yaml:"encoder_model_path"`
	DPRDocModelPath   string `yaml:"dpr_doc_model_path"`
	DPRQueryModelPath string `yaml:"dpr_query_model_path"`
	Dimensions        int    `yaml:"dimensions"`
	MaxTokens         int    `yaml:"max_tokens"`
	CacheSize         int    `yaml:"cache_size"`
	BatchSize         int    `yaml:"batch_size"`
	Device            string `yaml:"device"`
}

// RetrievalConfig holds the enabled method set and result depth.
type RetrievalConfig struct {
	Methods     []string `yaml:"methods"`
	K           int      `yaml:"k"`
	ClausesPath string   `yaml:"clauses_path"`
}

// AnalysisConfig holds aggregation thresholds and report truncation.
type AnalysisConfig struct {
	MinThreshold float64 `yaml:"min_threshold"`
	MinFrequency int     `yaml:"min_frequency"`
	TopNDocs     int     `yaml:"top_n_docs"`
	TopMMethods  int     `yaml:"top_m_methods"`
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

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Extraction.SourceDir = expandPath(cfg.Extraction.SourceDir, configDir)
	cfg.Extraction.OutputDir = expandPath(cfg.Extraction.OutputDir, configDir)
	cfg.Embedding.EncoderModelPath = expandPath(cfg.Embedding.EncoderModelPath, configDir)
	cfg.Embedding.DPRDocModelPath = expandPath(cfg.Embedding.DPRDocModelPath, configDir)
	cfg.Embedding.DPRQueryModelPath = expandPath(cfg.Embedding.DPRQueryModelPath, configDir)
	cfg.Retrieval.ClausesPath = expandPath(cfg.Retrieval.ClausesPath, configDir)

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

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths are left empty.
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
