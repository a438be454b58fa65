package retriever

import (
	"context"
	"fmt"

	"github.com/tenderlab/clausematch/internal/models"
)

// FlashRetriever is an exact-term inverted index. Similarity is the fraction
// of query terms present in a paragraph, so scores are binary for one-term
// queries and near-binary otherwise.
type FlashRetriever struct {
	postings map[string]map[int]struct{}
	built    bool
}

// NewFlashRetriever returns an unbuilt flash retriever.
func NewFlashRetriever() *FlashRetriever {
	return &FlashRetriever{postings: make(map[string]map[int]struct{})}
}

// Name returns the method name.
func (r *FlashRetriever) Name() string { return "flash" }

// Build indexes each paragraph's terms into postings.
func (r *FlashRetriever) Build(ctx context.Context, corpus *models.Corpus) error {
	if corpus.Len() == 0 {
		return fmt.Errorf("flash: empty corpus")
	}
	for _, p := range corpus.Paragraphs {
		for _, t := range tokenize(p.Text) {
			set, ok := r.postings[t]
			if !ok {
				set = make(map[int]struct{})
				r.postings[t] = set
			}
			set[p.ID] = struct{}{}
		}
	}
	r.built = true
	return nil
}

// Query returns paragraphs containing at least one query term, scored by the
// fraction of distinct query terms they match.
func (r *FlashRetriever) Query(ctx context.Context, text string, k int) ([]models.MethodResult, error) {
	if !r.built {
		return nil, fmt.Errorf("flash: index not built")
	}
	terms := tokenize(text)
	unique := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		unique[t] = struct{}{}
	}
	if len(unique) == 0 {
		return nil, nil
	}

	matched := make(map[int]int)
	for t := range unique {
		for id := range r.postings[t] {
			matched[id]++
		}
	}
	scores := make(map[int]float64, len(matched))
	for id, count := range matched {
		scores[id] = float64(count) / float64(len(unique))
	}
	return topK(scores, k), nil
}
