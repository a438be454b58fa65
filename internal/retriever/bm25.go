package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tenderlab/clausematch/internal/models"
)

// BM25 free parameters; the usual Robertson defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// BM25Retriever ranks paragraphs by Okapi BM25 over term statistics.
// Similarity is the raw BM25 score: unbounded, typically small positive
// floats, rescaled later by the analyser.
type BM25Retriever struct {
	ids       []int
	termFreqs []map[string]int
	docLens   []int
	docFreqs  map[string]int
	avgDocLen float64
	built     bool
}

// NewBM25Retriever returns an unbuilt BM25 retriever.
func NewBM25Retriever() *BM25Retriever {
	return &BM25Retriever{docFreqs: make(map[string]int)}
}

// Name returns the method name.
func (r *BM25Retriever) Name() string { return "bm25" }

// Build tokenizes the corpus and collects term and document frequencies.
func (r *BM25Retriever) Build(ctx context.Context, corpus *models.Corpus) error {
	if corpus.Len() == 0 {
		return fmt.Errorf("bm25: empty corpus")
	}
	totalLen := 0
	for _, p := range corpus.Paragraphs {
		terms := tokenize(p.Text)
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for t := range tf {
			r.docFreqs[t]++
		}
		r.ids = append(r.ids, p.ID)
		r.termFreqs = append(r.termFreqs, tf)
		r.docLens = append(r.docLens, len(terms))
		totalLen += len(terms)
	}
	r.avgDocLen = float64(totalLen) / float64(len(r.ids))
	r.built = true
	return nil
}

// Query scores every document against the query terms and returns the top k.
func (r *BM25Retriever) Query(ctx context.Context, text string, k int) ([]models.MethodResult, error) {
	if !r.built {
		return nil, fmt.Errorf("bm25: index not built")
	}
	queryTerms := tokenize(text)
	n := float64(len(r.ids))

	scores := make(map[int]float64)
	for _, term := range queryTerms {
		df := r.docFreqs[term]
		if df == 0 {
			continue
		}
		idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for i, tf := range r.termFreqs {
			freq := float64(tf[term])
			if freq == 0 {
				continue
			}
			norm := freq * (bm25K1 + 1) / (freq + bm25K1*(1-bm25B+bm25B*float64(r.docLens[i])/r.avgDocLen))
			scores[r.ids[i]] += idf * norm
		}
	}
	return topK(scores, k), nil
}

// topK converts a score map into the k best results, descending similarity,
// document ID ascending on ties so ordering is deterministic.
func topK(scores map[int]float64, k int) []models.MethodResult {
	results := make([]models.MethodResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, models.MethodResult{ID: id, Similarity: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
