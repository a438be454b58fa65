package retriever

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/tenderlab/clausematch/internal/embedding"
	"github.com/tenderlab/clausematch/internal/models"
)

func testCorpus() *models.Corpus {
	return &models.Corpus{
		Paragraphs: []models.Paragraph{
			{ID: 1, Text: "The supplier shall limit its liability to direct damages only.", Source: "a.txt"},
			{ID: 2, Text: "Payment is due within thirty days of the invoice date.", Source: "a.txt"},
			{ID: 3, Text: "This agreement is governed by the laws of the Netherlands.", Source: "b.txt"},
			{ID: 4, Text: "Liability for indirect damages is excluded under this agreement.", Source: "b.txt"},
		},
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Don't split: numbers 42 and Words!")
	want := []string{"don't", "split", "numbers", "42", "and", "words"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize = %v, want %v", got, want)
	}
}

func TestTopKOrdering(t *testing.T) {
	scores := map[int]float64{5: 0.3, 2: 0.9, 8: 0.3, 1: 0.1}
	got := topK(scores, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("best = %d", got[0].ID)
	}
	// Equal scores order by ID ascending
	if got[1].ID != 5 || got[2].ID != 8 {
		t.Errorf("tie order = %d, %d", got[1].ID, got[2].ID)
	}
}

func TestBM25Retriever(t *testing.T) {
	r := NewBM25Retriever()
	ctx := context.Background()
	if _, err := r.Query(ctx, "liability", 5); err == nil {
		t.Error("query before build must fail")
	}
	if err := r.Build(ctx, testCorpus()); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Query(ctx, "liability damages", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected paragraphs 1 and 4, got %v", hits)
	}
	for _, h := range hits {
		if h.ID != 1 && h.ID != 4 {
			t.Errorf("unexpected hit %d", h.ID)
		}
		if h.Similarity <= 0 {
			t.Errorf("non-positive score for %d", h.ID)
		}
	}

	// Descending order
	if hits[0].Similarity < hits[1].Similarity {
		t.Error("results not sorted by score")
	}

	// Deterministic across calls
	again, _ := r.Query(ctx, "liability damages", 5)
	if !reflect.DeepEqual(hits, again) {
		t.Error("same query returned different rankings")
	}
}

func TestBM25EmptyCorpus(t *testing.T) {
	r := NewBM25Retriever()
	if err := r.Build(context.Background(), &models.Corpus{}); err == nil {
		t.Error("expected error building on empty corpus")
	}
}

func TestTFIDFRetriever(t *testing.T) {
	r := NewTFIDFRetriever()
	ctx := context.Background()
	if err := r.Build(ctx, testCorpus()); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Query(ctx, "governed by the laws", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != 3 {
		t.Fatalf("expected paragraph 3 first, got %v", hits)
	}
	for _, h := range hits {
		if h.Similarity <= 0 || h.Similarity > 1+1e-9 {
			t.Errorf("cosine out of range: %+v", h)
		}
	}
}

func TestTFIDFNoOverlap(t *testing.T) {
	r := NewTFIDFRetriever()
	ctx := context.Background()
	_ = r.Build(ctx, testCorpus())
	hits, err := r.Query(ctx, "zzz qqq", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits for unseen terms, got %v", hits)
	}
}

func TestFlashRetriever(t *testing.T) {
	r := NewFlashRetriever()
	ctx := context.Background()
	if err := r.Build(ctx, testCorpus()); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Query(ctx, "liability excluded", 5)
	if err != nil {
		t.Fatal(err)
	}
	// Paragraph 4 matches both terms, paragraph 1 only one.
	if hits[0].ID != 4 || hits[0].Similarity != 1.0 {
		t.Errorf("best = %+v", hits[0])
	}
	found := false
	for _, h := range hits {
		if h.ID == 1 && h.Similarity == 0.5 {
			found = true
		}
	}
	if !found {
		t.Errorf("partial match missing: %v", hits)
	}
}

func TestFullTextRetriever(t *testing.T) {
	r, err := NewFullTextRetriever()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	ctx := context.Background()
	if err := r.Build(ctx, testCorpus()); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Query(ctx, "invoice payment", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != 2 {
		t.Fatalf("expected paragraph 2 first, got %v", hits)
	}
	if hits[0].Similarity <= 0 {
		t.Errorf("score = %f", hits[0].Similarity)
	}
}

func TestFuzzyRetriever(t *testing.T) {
	r := NewFuzzyRetriever()
	ctx := context.Background()
	if err := r.Build(ctx, testCorpus()); err != nil {
		t.Fatal(err)
	}

	// Misspelled query still finds the liability paragraphs.
	hits, err := r.Query(ctx, "lability", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != 1 && hits[0].ID != 4 {
		t.Errorf("best fuzzy hit = %d", hits[0].ID)
	}
	for _, h := range hits {
		if h.Similarity < 0 || h.Similarity > 100 {
			t.Errorf("score out of range: %+v", h)
		}
	}
}

func TestFuzzyEmptyQuery(t *testing.T) {
	r := NewFuzzyRetriever()
	ctx := context.Background()
	_ = r.Build(ctx, testCorpus())
	hits, err := r.Query(ctx, "   ", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits for blank query, got %v", hits)
	}
}

func TestPartialRatio(t *testing.T) {
	if got := partialRatio([]rune("abc"), []rune("xxabcxx")); got != 100 {
		t.Errorf("exact substring = %f", got)
	}
	if got := partialRatio([]rune("abc"), []rune("abc")); got != 100 {
		t.Errorf("identical = %f", got)
	}
	got := partialRatio([]rune("abcd"), []rune("abxd"))
	if math.Abs(got-75) > 1e-9 {
		t.Errorf("one substitution in four = %f", got)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}
	for _, c := range cases {
		if got := levenshteinDistance([]rune(c.a), []rune(c.b)); got != c.want {
			t.Errorf("distance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestDenseRetriever(t *testing.T) {
	enc := embedding.NewMockEmbedder(8)
	r := NewDenseRetriever("embedding", enc, enc, embedding.DefaultContext(), 2)
	ctx := context.Background()
	if err := r.Build(ctx, testCorpus()); err != nil {
		t.Fatal(err)
	}

	// Query identical to a paragraph embeds identically, distance 0, score 1.
	hits, err := r.Query(ctx, testCorpus().Paragraphs[2].Text, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != 3 || math.Abs(hits[0].Similarity-1) > 1e-6 {
		t.Errorf("exact match = %+v", hits[0])
	}
	if hits[1].Similarity >= hits[0].Similarity {
		t.Error("results not ordered by similarity")
	}
}

func TestDenseRetrieverNoEncoder(t *testing.T) {
	r := NewDenseRetriever("dpr", nil, nil, embedding.DefaultContext(), 0)
	if err := r.Build(context.Background(), testCorpus()); err == nil {
		t.Error("expected error without a document encoder")
	}
}

func TestRegistry(t *testing.T) {
	enc := embedding.NewMockEmbedder(4)
	deps := Deps{Encoder: enc, DocEncoder: enc, QueryEncoder: enc, Compute: embedding.DefaultContext(), BatchSize: 2}
	registry := Registry()

	for _, name := range []string{"bm25", "tfidf", "flash", "fulltext", "fuzzy", "embedding", "dpr"} {
		factory, ok := registry[name]
		if !ok {
			t.Fatalf("missing constructor for %s", name)
		}
		r, err := factory(deps)
		if err != nil {
			t.Fatalf("%s constructor error: %v", name, err)
		}
		if r.Name() != name {
			t.Errorf("%s reports name %s", name, r.Name())
		}
	}

	// Dense constructors fail without encoders.
	if _, err := registry["embedding"](Deps{}); err == nil {
		t.Error("embedding without encoder should fail")
	}
	if _, err := registry["dpr"](Deps{}); err == nil {
		t.Error("dpr without encoders should fail")
	}
}
