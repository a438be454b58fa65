// Package extract turns folders of heterogeneous documents into ordered,
// normalized paragraph corpora.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tenderlab/clausematch/internal/models"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned by format dispatch for unknown extensions.
// ExtractFolder records such files and continues; it never aborts the run.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor splits documents into paragraphs, merges short fragments, and
// filters the result by character count.
type Extractor struct {
	minWords int
	minChars int
	logger   *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets a logger for per-file progress and failure records.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns an extractor with the given merge and filter thresholds.
// minWords is the word count a merged paragraph must reach before it is
// flushed; minChars drops paragraphs below that character count after merging.
func NewExtractor(minWords, minChars int, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		minWords: minWords,
		minChars: minChars,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFolder walks folder and produces the paragraph corpus for every
// supported file found. Paragraph IDs are assigned sequentially across the
// whole run, in file-processing order, starting at 1; the min_chars filter
// runs after ID assignment, so IDs may have gaps but never change.
//
// A single file's failure is logged and the file skipped; unknown extensions
// are recorded in Corpus.Unsupported. Only a missing or unreadable folder
// aborts the run.
func (e *Extractor) ExtractFolder(folder string) (*models.Corpus, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", folder)
	}

	corpus := &models.Corpus{}
	nextID := 1
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		raw, extractErr := e.extractFile(path)
		if errors.Is(extractErr, ErrUnsupportedFormat) {
			corpus.Unsupported = append(corpus.Unsupported, name)
			e.logger.Warn("skipping unsupported file format", zap.String("file", name))
			return nil
		}
		if extractErr != nil {
			e.logger.Error("file extraction failed, skipping",
				zap.String("file", name), zap.Error(extractErr))
			return nil
		}
		merged := mergeShortParagraphs(raw, e.minWords)
		for _, text := range merged {
			if text == "" {
				continue
			}
			corpus.Paragraphs = append(corpus.Paragraphs, models.Paragraph{
				ID:        nextID,
				Text:      text,
				Source:    name,
				CharCount: len(text),
				WordCount: len(strings.Fields(text)),
			})
			nextID++
		}
		e.logger.Debug("file extracted",
			zap.String("file", name), zap.Int("paragraphs", len(merged)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk folder: %w", err)
	}

	corpus.Paragraphs = filterByChars(corpus.Paragraphs, e.minChars)
	e.logger.Info("extraction complete",
		zap.Int("paragraphs", len(corpus.Paragraphs)),
		zap.Int("unsupported_files", len(corpus.Unsupported)),
	)
	return corpus, nil
}

// extractFile dispatches by extension to a format-specific paragraph splitter.
func (e *Extractor) extractFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt":
		return extractODT(content)
	case ".txt":
		return extractPlain(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// mergeShortParagraphs accumulates consecutive raw paragraphs into a running
// buffer and flushes it as one output paragraph once its word count reaches
// minWords. Any remainder is flushed at end of input, so the final paragraph
// of a file may fall below the threshold.
func mergeShortParagraphs(paragraphs []string, minWords int) []string {
	merged := make([]string, 0, len(paragraphs))
	current := ""
	for _, p := range paragraphs {
		if current != "" {
			current += " " + p
		} else {
			current = p
		}
		if len(strings.Fields(current)) >= minWords {
			merged = append(merged, current)
			current = ""
		}
	}
	if current != "" {
		merged = append(merged, current)
	}
	return merged
}

// filterByChars drops paragraphs whose character count is below minChars.
func filterByChars(paragraphs []models.Paragraph, minChars int) []models.Paragraph {
	if minChars <= 0 {
		return paragraphs
	}
	kept := paragraphs[:0]
	for _, p := range paragraphs {
		if p.CharCount >= minChars {
			kept = append(kept, p)
		}
	}
	return kept
}
