package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tenderlab/clausematch/internal/models"
)

// LoadResults reads a retrieval result set from a JSON file.
func LoadResults(path string) (models.ResultSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var results models.ResultSet
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return results, nil
}

// SaveResults writes a result set as indented JSON, creating the directory
// if needed.
func SaveResults(path string, results models.ResultSet) error {
	return writeJSON(path, results)
}

// SaveReport writes the final report as indented JSON.
func SaveReport(path string, report *models.AnalysisReport) error {
	return writeJSON(path, report)
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
