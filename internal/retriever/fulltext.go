package retriever

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/tenderlab/clausematch/internal/models"
)

// FullTextRetriever is the ranked full-text method, backed by an in-memory
// Bleve index. Similarity is Bleve's internal relevance score: opaque, but
// comparable within the method.
type FullTextRetriever struct {
	index bleve.Index
	built bool
}

// indexedParagraph is the shape Bleve indexes for each paragraph.
type indexedParagraph struct {
	Text string `json:"text"`
}

// NewFullTextRetriever creates the retriever with a fresh in-memory index.
// Indices here live only for one analysis run; the combined dense index is
// the only persisted one.
func NewFullTextRetriever() (*FullTextRetriever, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so query terms
	// match exact corpus words.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("fulltext: create index: %w", err)
	}
	return &FullTextRetriever{index: index}, nil
}

// Name returns the method name.
func (r *FullTextRetriever) Name() string { return "fulltext" }

// Build indexes every paragraph under its ID.
func (r *FullTextRetriever) Build(ctx context.Context, corpus *models.Corpus) error {
	if corpus.Len() == 0 {
		return fmt.Errorf("fulltext: empty corpus")
	}
	batch := r.index.NewBatch()
	for _, p := range corpus.Paragraphs {
		if err := batch.Index(strconv.Itoa(p.ID), indexedParagraph{Text: p.Text}); err != nil {
			return fmt.Errorf("fulltext: batch index paragraph %d: %w", p.ID, err)
		}
	}
	if err := r.index.Batch(batch); err != nil {
		return fmt.Errorf("fulltext: commit batch: %w", err)
	}
	r.built = true
	return nil
}

// Query runs a match query and returns up to k hits.
func (r *FullTextRetriever) Query(ctx context.Context, text string, k int) ([]models.MethodResult, error) {
	if !r.built {
		return nil, fmt.Errorf("fulltext: index not built")
	}
	q := bleve.NewMatchQuery(text)
	req := bleve.NewSearchRequest(q)
	req.Size = k
	res, err := r.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fulltext: search failed: %w", err)
	}
	out := make([]models.MethodResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, convErr := strconv.Atoi(hit.ID)
		if convErr != nil {
			continue
		}
		out = append(out, models.MethodResult{ID: id, Similarity: hit.Score})
	}
	return out, nil
}

// Close releases the in-memory index.
func (r *FullTextRetriever) Close() error {
	return r.index.Close()
}
