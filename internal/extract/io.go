package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tenderlab/clausematch/internal/models"
)

// SaveCorpus writes the extraction output artifact: a JSON array of
// paragraphs. The output directory is created if needed.
func SaveCorpus(path string, corpus *models.Corpus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(corpus.Paragraphs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal paragraphs: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write extracted data: %w", err)
	}
	return nil
}

// LoadCorpus reads a previously written extraction artifact.
func LoadCorpus(path string) (*models.Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extracted data: %w", err)
	}
	var paragraphs []models.Paragraph
	if err := json.Unmarshal(data, &paragraphs); err != nil {
		return nil, fmt.Errorf("parse extracted data: %w", err)
	}
	return &models.Corpus{Paragraphs: paragraphs}, nil
}
