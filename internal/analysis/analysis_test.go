package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tenderlab/clausematch/internal/models"
)

func testCorpus() *models.Corpus {
	return &models.Corpus{
		Paragraphs: []models.Paragraph{
			{ID: 1, Text: "liability paragraph", Source: "a.txt"},
			{ID: 2, Text: "payment paragraph", Source: "a.txt"},
			{ID: 3, Text: "law paragraph", Source: "b.txt"},
		},
	}
}

func testClauses() models.ClauseSet {
	return models.ClauseSet{"c1": "limitation of liability", "c2": "governing law"}
}

func TestNormalizeScore(t *testing.T) {
	if got := NormalizeScore("bm25", 0.2); got != 20 {
		t.Errorf("bm25 = %f", got)
	}
	if got := NormalizeScore("tfidf", 0.5); got != 50 {
		t.Errorf("tfidf = %f", got)
	}
	if got := NormalizeScore("embedding", 1.0); got != 100 {
		t.Errorf("embedding = %f", got)
	}
	// Percentage-style methods pass through unchanged.
	if got := NormalizeScore("fuzzy", 87.5); got != 87.5 {
		t.Errorf("fuzzy = %f", got)
	}
	if got := NormalizeScore("flash", 0.5); got != 0.5 {
		t.Errorf("flash = %f", got)
	}
}

func TestAnalyseMaxScoreAndFrequency(t *testing.T) {
	// The same document qualifying twice for one method keeps the best score
	// and counts both occurrences.
	results := models.ResultSet{
		"c1": {
			"bm25": {{ID: 1, Similarity: 0.2}, {ID: 1, Similarity: 0.5}},
		},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 1, TopNDocs: 5, TopMMethods: 3})
	report := a.Analyse(testCorpus(), testClauses(), results)

	if len(report.Docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(report.Docs))
	}
	doc := report.Docs[0]
	if doc.DocumentID != 1 || doc.Frequency != 2 {
		t.Errorf("doc = id %d, frequency %d", doc.DocumentID, doc.Frequency)
	}
	if doc.DocumentText != "liability paragraph" || doc.DocumentSource != "a.txt" {
		t.Errorf("doc text/source = %q / %q", doc.DocumentText, doc.DocumentSource)
	}
	if len(doc.Clauses) != 1 || doc.Clauses[0].ClauseID != "c1" {
		t.Fatalf("clauses = %+v", doc.Clauses)
	}
	ms := doc.Clauses[0].Methods
	if len(ms) != 1 || ms[0].Method != "bm25" || ms[0].Score != 50 {
		t.Errorf("methods = %+v", ms)
	}
}

func TestAnalyseThreshold(t *testing.T) {
	results := models.ResultSet{
		"c1": {
			"bm25":  {{ID: 1, Similarity: 0.05}}, // 5 after scaling, below 10
			"fuzzy": {{ID: 2, Similarity: 60}},
		},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 1, TopNDocs: 5, TopMMethods: 3})
	report := a.Analyse(testCorpus(), testClauses(), results)

	if len(report.Docs) != 1 || report.Docs[0].DocumentID != 2 {
		t.Fatalf("expected only document 2, got %+v", report.Docs)
	}
}

func TestAnalyseMinFrequency(t *testing.T) {
	results := models.ResultSet{
		"c1": {
			"fuzzy": {{ID: 1, Similarity: 60}, {ID: 2, Similarity: 60}},
			"flash": {{ID: 1, Similarity: 80}},
		},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 2, TopNDocs: 5, TopMMethods: 3})
	report := a.Analyse(testCorpus(), testClauses(), results)

	if len(report.Docs) != 1 || report.Docs[0].DocumentID != 1 {
		t.Fatalf("expected only document 1 (two hits), got %+v", report.Docs)
	}
	if report.Docs[0].Frequency != 2 {
		t.Errorf("frequency = %d", report.Docs[0].Frequency)
	}
}

func TestAnalyseTopNDocs(t *testing.T) {
	results := models.ResultSet{
		"c1": {
			"fuzzy": {
				{ID: 1, Similarity: 60},
				{ID: 2, Similarity: 60}, {ID: 2, Similarity: 70},
				{ID: 3, Similarity: 60},
			},
		},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 1, TopNDocs: 1, TopMMethods: 3})
	report := a.Analyse(testCorpus(), testClauses(), results)

	if len(report.Docs) != 1 {
		t.Fatalf("expected report truncated to 1 document, got %d", len(report.Docs))
	}
	if report.Docs[0].DocumentID != 2 {
		t.Errorf("highest-frequency document = %d", report.Docs[0].DocumentID)
	}
}

func TestAnalyseTopMMethods(t *testing.T) {
	results := models.ResultSet{
		"c1": {
			"fuzzy":    {{ID: 1, Similarity: 90}},
			"flash":    {{ID: 1, Similarity: 80}},
			"fulltext": {{ID: 1, Similarity: 70}},
			"bm25":     {{ID: 1, Similarity: 0.6}},
		},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 1, TopNDocs: 5, TopMMethods: 2})
	report := a.Analyse(testCorpus(), testClauses(), results)

	ms := report.Docs[0].Clauses[0].Methods
	if len(ms) != 2 {
		t.Fatalf("expected 2 methods kept, got %+v", ms)
	}
	if ms[0].Method != "fuzzy" || ms[1].Method != "flash" {
		t.Errorf("kept methods = %+v", ms)
	}
}

func TestAnalyseFrequencyTieOrder(t *testing.T) {
	// Equal frequencies rank by first qualifying occurrence.
	results := models.ResultSet{
		"c1": {
			"fuzzy": {{ID: 3, Similarity: 60}, {ID: 1, Similarity: 90}},
		},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 1, TopNDocs: 5, TopMMethods: 3})
	report := a.Analyse(testCorpus(), testClauses(), results)

	if len(report.Docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(report.Docs))
	}
	if report.Docs[0].DocumentID != 3 || report.Docs[1].DocumentID != 1 {
		t.Errorf("tie order = %d, %d", report.Docs[0].DocumentID, report.Docs[1].DocumentID)
	}
}

func TestAnalyseUnknownDocumentID(t *testing.T) {
	// A result referencing a paragraph missing from the corpus still counts,
	// with empty display fields.
	results := models.ResultSet{
		"c1": {
			"fuzzy": {{ID: 99, Similarity: 60}},
		},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 1, TopNDocs: 5, TopMMethods: 3})
	report := a.Analyse(testCorpus(), testClauses(), results)

	if len(report.Docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(report.Docs))
	}
	doc := report.Docs[0]
	if doc.DocumentID != 99 || doc.DocumentText != "" || doc.DocumentSource != "" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestAnalyseDeterministic(t *testing.T) {
	results := models.ResultSet{
		"c2": {
			"fuzzy": {{ID: 1, Similarity: 60}, {ID: 2, Similarity: 80}},
			"flash": {{ID: 3, Similarity: 90}},
		},
		"c1": {
			"bm25": {{ID: 2, Similarity: 0.4}},
		},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 1, TopNDocs: 5, TopMMethods: 3})
	first := a.Analyse(testCorpus(), testClauses(), results)
	for i := 0; i < 10; i++ {
		again := a.Analyse(testCorpus(), testClauses(), results)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("same inputs produced different reports")
		}
	}
}

func TestAnalyseClauseOrdering(t *testing.T) {
	results := models.ResultSet{
		"c1": {"fuzzy": {{ID: 1, Similarity: 40}}},
		"c2": {"fuzzy": {{ID: 1, Similarity: 95}}},
	}
	a := New(Options{MinThreshold: 10, MinFrequency: 1, TopNDocs: 5, TopMMethods: 3})
	report := a.Analyse(testCorpus(), testClauses(), results)

	clauses := report.Docs[0].Clauses
	if len(clauses) != 2 {
		t.Fatalf("clauses = %+v", clauses)
	}
	// Best-scoring clause first, and clause text filled from the clause set.
	if clauses[0].ClauseID != "c2" || clauses[0].ClauseText != "governing law" {
		t.Errorf("first clause = %+v", clauses[0])
	}
}

func TestResultsIO(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "retrieval_results.json")
	rs := models.ResultSet{
		"c1": {"bm25": {{ID: 1, Similarity: 0.5}}},
	}
	if err := SaveResults(path, rs); err != nil {
		t.Fatalf("SaveResults error: %v", err)
	}
	back, err := LoadResults(path)
	if err != nil {
		t.Fatalf("LoadResults error: %v", err)
	}
	if back["c1"]["bm25"][0].Similarity != 0.5 {
		t.Errorf("round trip = %+v", back)
	}
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis_report.json")
	report := &models.AnalysisReport{
		Docs: []models.DocReport{{DocumentID: 1, Frequency: 1, Clauses: []models.ClauseReport{}}},
	}
	if err := SaveReport(path, report); err != nil {
		t.Fatalf("SaveReport error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("report not valid JSON: %v", err)
	}
	if _, ok := parsed["1"]; !ok {
		t.Errorf("missing document key: %v", parsed)
	}
}
