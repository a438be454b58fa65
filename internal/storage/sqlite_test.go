package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tenderlab/clausematch/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "data", "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReplaceParagraphs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []models.Paragraph{
		{ID: 1, Text: "one", Source: "a.txt", CharCount: 3, WordCount: 1},
		{ID: 2, Text: "two", Source: "a.txt", CharCount: 3, WordCount: 1},
	}
	if err := store.ReplaceParagraphs(ctx, first); err != nil {
		t.Fatalf("ReplaceParagraphs error: %v", err)
	}
	count, err := store.CountParagraphs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d", count)
	}

	// A second extraction replaces the previous corpus entirely.
	second := []models.Paragraph{{ID: 5, Text: "five", Source: "b.txt", CharCount: 4, WordCount: 1}}
	if err := store.ReplaceParagraphs(ctx, second); err != nil {
		t.Fatal(err)
	}
	got, err := store.Paragraphs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 5 || got[0].Text != "five" {
		t.Errorf("paragraphs after replace = %+v", got)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, status := range []string{RunFailed, RunCompleted} {
		err := store.RecordRun(ctx, Run{
			ID:         "run-" + status,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Status:     status,
			Documents:  10,
			Methods:    4,
			ReportPath: "/tmp/report.json",
		})
		if err != nil {
			t.Fatalf("RecordRun error: %v", err)
		}
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d", len(runs))
	}
	// Newest first
	if runs[0].Status != RunCompleted {
		t.Errorf("first run = %+v", runs[0])
	}
	if runs[0].Documents != 10 || runs[0].Methods != 4 {
		t.Errorf("run fields = %+v", runs[0])
	}

	last, err := store.LastRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.ID != "run-"+RunCompleted {
		t.Errorf("last run = %+v", last)
	}
}

func TestLastRunEmpty(t *testing.T) {
	store := newTestStore(t)
	last, err := store.LastRun(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if last != nil {
		t.Errorf("expected nil for empty history, got %+v", last)
	}
}
