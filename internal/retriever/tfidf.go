package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tenderlab/clausematch/internal/models"
)

// TFIDFRetriever ranks paragraphs by cosine similarity between sparse
// TF-IDF term-weight vectors. Similarity lands in [0,1] since vectors are
// unit-normalized.
type TFIDFRetriever struct {
	vocabulary map[string]int
	idf        []float64
	ids        []int
	docVecs    []map[int]float64 // sparse, L2-normalized
	built      bool
}

// NewTFIDFRetriever returns an unbuilt TF-IDF retriever.
func NewTFIDFRetriever() *TFIDFRetriever {
	return &TFIDFRetriever{vocabulary: make(map[string]int)}
}

// Name returns the method name.
func (r *TFIDFRetriever) Name() string { return "tfidf" }

// Build constructs the vocabulary with smoothed IDF values and precomputes a
// normalized sparse vector per paragraph. Vocabulary order is sorted so the
// same corpus always yields the same vector layout.
func (r *TFIDFRetriever) Build(ctx context.Context, corpus *models.Corpus) error {
	if corpus.Len() == 0 {
		return fmt.Errorf("tfidf: empty corpus")
	}
	df := make(map[string]int)
	docTerms := make([][]string, corpus.Len())
	for i, p := range corpus.Paragraphs {
		terms := tokenize(p.Text)
		docTerms[i] = terms
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	if len(df) == 0 {
		return fmt.Errorf("tfidf: no tokens found in corpus")
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	r.idf = make([]float64, len(terms))
	n := float64(corpus.Len())
	for i, t := range terms {
		r.vocabulary[t] = i
		// Smoothed IDF
		r.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1.0
	}

	for i, p := range corpus.Paragraphs {
		r.ids = append(r.ids, p.ID)
		r.docVecs = append(r.docVecs, r.vectorize(docTerms[i]))
	}
	r.built = true
	return nil
}

// Query returns the k paragraphs with the highest cosine similarity to the
// query vector; zero-similarity paragraphs are omitted.
func (r *TFIDFRetriever) Query(ctx context.Context, text string, k int) ([]models.MethodResult, error) {
	if !r.built {
		return nil, fmt.Errorf("tfidf: index not built")
	}
	queryVec := r.vectorize(tokenize(text))
	scores := make(map[int]float64)
	for i, docVec := range r.docVecs {
		// Both vectors are unit length, so the dot product is the cosine.
		var dot float64
		for idx, w := range queryVec {
			dot += w * docVec[idx]
		}
		if dot > 0 {
			scores[r.ids[i]] = dot
		}
	}
	return topK(scores, k), nil
}

// vectorize builds the L2-normalized sparse TF-IDF vector for the terms.
func (r *TFIDFRetriever) vectorize(terms []string) map[int]float64 {
	tf := make(map[int]int)
	total := 0
	for _, t := range terms {
		if idx, ok := r.vocabulary[t]; ok {
			tf[idx]++
			total++
		}
	}
	vec := make(map[int]float64, len(tf))
	if total == 0 {
		return vec
	}
	var norm float64
	for idx, count := range tf {
		w := float64(count) / float64(total) * r.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}
