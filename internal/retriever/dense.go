package retriever

import (
	"context"
	"fmt"

	"github.com/tenderlab/clausematch/internal/embedding"
	"github.com/tenderlab/clausematch/internal/models"
	"github.com/tenderlab/clausematch/internal/vector"
)

// DenseRetriever embeds paragraphs into a flat vector index and answers
// queries by nearest-neighbour search. With a shared encoder for both sides it
// behaves as a plain embedding retriever; with distinct document and query
// encoders it is a dual-encoder (DPR style) retriever.
type DenseRetriever struct {
	name         string
	docEncoder   embedding.Embedder
	queryEncoder embedding.Embedder
	cc           embedding.ComputeContext
	batchSize    int
	index        *vector.FlatIndex
}

// NewDenseRetriever creates a dense retriever. docEncoder and queryEncoder may
// be the same instance.
func NewDenseRetriever(name string, docEncoder, queryEncoder embedding.Embedder, cc embedding.ComputeContext, batchSize int) *DenseRetriever {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &DenseRetriever{
		name:         name,
		docEncoder:   docEncoder,
		queryEncoder: queryEncoder,
		cc:           cc,
		batchSize:    batchSize,
	}
}

// Name returns the method name.
func (r *DenseRetriever) Name() string { return r.name }

// Build embeds every paragraph in batches and adds the vectors to a fresh
// flat index.
func (r *DenseRetriever) Build(ctx context.Context, corpus *models.Corpus) error {
	if corpus.Len() == 0 {
		return fmt.Errorf("%s: empty corpus", r.name)
	}
	if r.docEncoder == nil {
		return fmt.Errorf("%s: no document encoder", r.name)
	}
	idx, err := vector.NewFlatIndex(r.docEncoder.Dimensions())
	if err != nil {
		return fmt.Errorf("%s: %w", r.name, err)
	}
	n := corpus.Len()
	for start := 0; start < n; start += r.batchSize {
		end := start + r.batchSize
		if end > n {
			end = n
		}
		batch := corpus.Paragraphs[start:end]
		texts := make([]string, len(batch))
		ids := make([]int, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
			ids[i] = p.ID
		}
		vecs, err := r.docEncoder.EmbedBatch(ctx, r.cc, texts)
		if err != nil {
			return fmt.Errorf("%s: embed batch at %d: %w", r.name, start, err)
		}
		if err := idx.Add(ctx, ids, vecs); err != nil {
			return fmt.Errorf("%s: index batch at %d: %w", r.name, start, err)
		}
	}
	r.index = idx
	return nil
}

// Query embeds the query text and converts neighbour distances into
// similarities with 1/(1+distance).
func (r *DenseRetriever) Query(ctx context.Context, text string, k int) ([]models.MethodResult, error) {
	if r.index == nil {
		return nil, fmt.Errorf("%s: index not built", r.name)
	}
	if r.queryEncoder == nil {
		return nil, fmt.Errorf("%s: no query encoder", r.name)
	}
	vec, err := r.queryEncoder.Embed(ctx, r.cc, text)
	if err != nil {
		return nil, fmt.Errorf("%s: embed query: %w", r.name, err)
	}
	neighbors, err := r.index.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	results := make([]models.MethodResult, 0, len(neighbors))
	for _, nb := range neighbors {
		results = append(results, models.MethodResult{
			ID:         nb.ID,
			Similarity: 1 / (1 + nb.Distance),
		})
	}
	return results, nil
}
