package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAnalysisReportMarshalJSON(t *testing.T) {
	report := AnalysisReport{
		Docs: []DocReport{
			{
				DocumentID:     12,
				DocumentText:   "second ranked",
				DocumentSource: "b.txt",
				Frequency:      3,
				Clauses: []ClauseReport{
					{
						ClauseID:   "c1",
						ClauseText: "liability",
						Methods: []MethodScore{
							{Method: "bm25", Score: 50},
							{Method: "tfidf", Score: 20},
						},
					},
				},
			},
			{
				DocumentID:     5,
				DocumentText:   "lower ranked",
				DocumentSource: "a.txt",
				Frequency:      1,
				Clauses:        []ClauseReport{},
			},
		},
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	out := string(data)

	// Documents must appear in rank order, not numeric key order.
	first := strings.Index(out, `"12"`)
	second := strings.Index(out, `"5"`)
	if first < 0 || second < 0 {
		t.Fatalf("missing document keys in %s", out)
	}
	if first > second {
		t.Errorf("rank order lost: %s", out)
	}

	// Clause entry carries text plus method scores.
	if !strings.Contains(out, `"clause_text":"liability"`) {
		t.Errorf("missing clause text: %s", out)
	}
	if !strings.Contains(out, `"bm25":50`) {
		t.Errorf("missing method score: %s", out)
	}

	// Output must still be valid JSON.
	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if parsed["12"]["frequency"].(float64) != 3 {
		t.Errorf("frequency = %v", parsed["12"]["frequency"])
	}
	if parsed["12"]["document_source"].(string) != "b.txt" {
		t.Errorf("source = %v", parsed["12"]["document_source"])
	}
}

func TestAnalysisReportMarshalEmpty(t *testing.T) {
	data, err := json.Marshal(AnalysisReport{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("empty report = %s", data)
	}
}
