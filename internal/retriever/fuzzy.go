package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/tenderlab/clausematch/internal/models"
)

// FuzzyRetriever scores paragraphs by edit-distance partial ratio: the best
// alignment of the query against any same-length window of the paragraph.
// Similarity is in [0,100].
type FuzzyRetriever struct {
	ids   []int
	texts [][]rune
	built bool
}

// NewFuzzyRetriever returns an unbuilt fuzzy retriever.
func NewFuzzyRetriever() *FuzzyRetriever {
	return &FuzzyRetriever{}
}

// Name returns the method name.
func (r *FuzzyRetriever) Name() string { return "fuzzy" }

// Build stores lowercased paragraph texts; there is no index structure, each
// query scans the corpus.
func (r *FuzzyRetriever) Build(ctx context.Context, corpus *models.Corpus) error {
	if corpus.Len() == 0 {
		return fmt.Errorf("fuzzy: empty corpus")
	}
	for _, p := range corpus.Paragraphs {
		r.ids = append(r.ids, p.ID)
		r.texts = append(r.texts, []rune(strings.ToLower(p.Text)))
	}
	r.built = true
	return nil
}

// Query computes the partial ratio of the query against every paragraph and
// returns the top k.
func (r *FuzzyRetriever) Query(ctx context.Context, text string, k int) ([]models.MethodResult, error) {
	if !r.built {
		return nil, fmt.Errorf("fuzzy: index not built")
	}
	query := []rune(strings.ToLower(strings.TrimSpace(text)))
	if len(query) == 0 {
		return nil, nil
	}
	scores := make(map[int]float64, len(r.ids))
	for i, t := range r.texts {
		scores[r.ids[i]] = partialRatio(query, t)
	}
	return topK(scores, k), nil
}

// partialRatio slides the shorter string across the longer and returns the
// best window's similarity ratio, 0-100.
func partialRatio(a, b []rune) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}
	if len(shorter) == len(longer) {
		return ratio(shorter, longer)
	}
	best := 0.0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := longer[start : start+len(shorter)]
		if s := ratio(shorter, window); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

// ratio converts edit distance into a 0-100 similarity score.
func ratio(a, b []rune) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	dist := levenshteinDistance(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}
