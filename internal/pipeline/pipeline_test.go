package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tenderlab/clausematch/internal/config"
	"github.com/tenderlab/clausematch/internal/models"
)

func writeSourceDocs(t *testing.T, dir string) {
	t.Helper()
	docs := map[string]string{
		"contract.txt": "The supplier shall limit its liability to direct damages arising from this agreement only.\n\n" +
			"Payment is due within thirty days of the invoice date without any deduction.",
		"terms.txt": "This agreement is governed by the laws of the Netherlands and disputes go to Amsterdam courts.",
	}
	for name, text := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func writeClauses(t *testing.T, path string) {
	t.Helper()
	data := `{
		"c1": {"Clause": "limitation of liability"},
		"c2": {"Clause": "governing law"}
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "docs")
	if err := os.Mkdir(source, 0755); err != nil {
		t.Fatal(err)
	}
	writeSourceDocs(t, source)
	clauses := filepath.Join(dir, "clauses.json")
	writeClauses(t, clauses)

	cfg := &config.Config{
		Extraction: config.ExtractionConfig{
			SourceDir: source,
			MinWords:  5,
			MinChars:  10,
			OutputDir: filepath.Join(dir, "output"),
		},
		Retrieval: config.RetrievalConfig{
			// Lexical methods only; no encoder models in tests.
			Methods:     []string{"bm25", "tfidf", "flash", "fulltext", "fuzzy"},
			K:           3,
			ClausesPath: clauses,
		},
		Analysis: config.AnalysisConfig{
			MinThreshold: 10,
			MinFrequency: 1,
			TopNDocs:     5,
			TopMMethods:  3,
		},
		Embedding: config.EmbeddingConfig{Device: "cpu", BatchSize: 2},
	}
	return cfg
}

func TestPipelineStages(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg)
	ctx := context.Background()

	corpus, err := p.Extract(ctx)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if corpus.Len() == 0 {
		t.Fatal("no paragraphs extracted")
	}
	if _, err := os.Stat(filepath.Join(cfg.Extraction.OutputDir, CorpusFile)); err != nil {
		t.Errorf("corpus artifact missing: %v", err)
	}

	// The artifact reloads to the same corpus.
	loaded, err := p.LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus error: %v", err)
	}
	if loaded.Len() != corpus.Len() {
		t.Errorf("reload count = %d, want %d", loaded.Len(), corpus.Len())
	}

	ens, cleanup, err := p.BuildEnsemble(ctx, corpus)
	if err != nil {
		t.Fatalf("BuildEnsemble error: %v", err)
	}
	defer cleanup()
	for _, m := range []string{"bm25", "tfidf", "flash", "fulltext", "fuzzy"} {
		if !ens.HasMethod(m) {
			t.Errorf("method %s unavailable", m)
		}
	}

	clauses, err := models.LoadClauses(cfg.Retrieval.ClausesPath)
	if err != nil {
		t.Fatal(err)
	}
	results, err := p.Retrieve(ctx, ens, clauses)
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected results for 2 clauses, got %d", len(results))
	}
	if _, ok := results["c1"]["bm25"]; !ok {
		t.Error("missing bm25 results for c1")
	}
	if _, err := os.Stat(filepath.Join(cfg.Extraction.OutputDir, ResultsFile)); err != nil {
		t.Errorf("results artifact missing: %v", err)
	}

	report, err := p.Analyse(corpus, clauses, results)
	if err != nil {
		t.Fatalf("Analyse error: %v", err)
	}
	if len(report.Docs) == 0 {
		t.Error("empty report")
	}
	if _, err := os.Stat(filepath.Join(cfg.Extraction.OutputDir, ReportFile)); err != nil {
		t.Errorf("report artifact missing: %v", err)
	}
}

func TestPipelineMissingInput(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg)

	if _, err := p.LoadCorpus(); !errors.Is(err, ErrMissingInput) {
		t.Errorf("LoadCorpus error = %v, want ErrMissingInput", err)
	}
	if _, err := p.LoadResults(); !errors.Is(err, ErrMissingInput) {
		t.Errorf("LoadResults error = %v, want ErrMissingInput", err)
	}
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(report.Docs) == 0 {
		t.Fatal("run produced an empty report")
	}
	// The liability paragraph should surface for the liability clause.
	found := false
	for _, doc := range report.Docs {
		if strings.Contains(doc.DocumentText, "liability") {
			found = true
		}
	}
	if !found {
		t.Errorf("liability paragraph not in report: %+v", report.Docs)
	}
	for _, name := range []string{CorpusFile, ResultsFile, ReportFile} {
		if _, err := os.Stat(filepath.Join(cfg.Extraction.OutputDir, name)); err != nil {
			t.Errorf("artifact %s missing: %v", name, err)
		}
	}
}

func TestPipelineRunBadSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extraction.SourceDir = filepath.Join(t.TempDir(), "absent")
	p := New(cfg)
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("expected error for missing source directory")
	}
}
