// Package ensemble coordinates the retrieval methods over one shared corpus.
// It owns the per-method indexes plus a combined dense index that concatenates
// the dual-encoder and general-encoder embeddings of every paragraph, and
// dispatches each query to the right place.
package ensemble

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/tenderlab/clausematch/internal/embedding"
	"github.com/tenderlab/clausematch/internal/models"
	"github.com/tenderlab/clausematch/internal/retriever"
	"github.com/tenderlab/clausematch/internal/vector"
)

// Ensemble holds the built retrievers and the combined dense index. A method
// that fails to construct or build is logged and dropped; the remaining
// methods keep working.
type Ensemble struct {
	retrievers map[string]retriever.Retriever
	combined   *vector.FlatIndex
	deps       retriever.Deps
	logger     *zap.Logger
	built      bool
}

// Option configures an Ensemble.
type Option func(*Ensemble)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Ensemble) {
		e.logger = logger
	}
}

// New constructs retrievers for the requested methods. Methods without a
// registered constructor are skipped here except "dpr" and "encoder", which
// are answered by the combined index; a method whose constructor fails is
// logged and skipped.
func New(methods []string, deps retriever.Deps, opts ...Option) *Ensemble {
	e := &Ensemble{
		retrievers: make(map[string]retriever.Retriever),
		deps:       deps,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	registry := retriever.Registry()
	for _, method := range methods {
		factory, ok := registry[method]
		if !ok {
			if method != "encoder" {
				e.logger.Warn("no constructor for retrieval method, skipping", zap.String("method", method))
			}
			continue
		}
		r, err := factory(deps)
		if err != nil {
			e.logger.Warn("retrieval method failed to initialize, skipping",
				zap.String("method", method), zap.Error(err))
			continue
		}
		e.retrievers[method] = r
	}
	return e
}

// Build indexes the corpus with every surviving retriever and then builds the
// combined dense index. A retriever whose build fails is dropped; the combined
// index is built only when both encoders are available and no index was
// restored beforehand.
func (e *Ensemble) Build(ctx context.Context, corpus *models.Corpus) error {
	if corpus == nil || corpus.Len() == 0 {
		return fmt.Errorf("ensemble: empty corpus")
	}
	for name, r := range e.retrievers {
		if err := r.Build(ctx, corpus); err != nil {
			e.logger.Warn("retrieval method failed to build, dropping",
				zap.String("method", name), zap.Error(err))
			delete(e.retrievers, name)
		}
	}
	if e.combined == nil && e.deps.DocEncoder != nil && e.deps.Encoder != nil {
		combined, err := e.buildCombined(ctx, corpus)
		if err != nil {
			e.logger.Warn("combined index failed to build", zap.Error(err))
		} else {
			e.combined = combined
		}
	}
	if len(e.retrievers) == 0 && e.combined == nil {
		return fmt.Errorf("ensemble: no retrieval method survived build")
	}
	e.built = true
	return nil
}

// buildCombined embeds every paragraph with both encoders and indexes the
// concatenated vectors, dual-encoder part first.
func (e *Ensemble) buildCombined(ctx context.Context, corpus *models.Corpus) (*vector.FlatIndex, error) {
	dim := e.deps.DocEncoder.Dimensions() + e.deps.Encoder.Dimensions()
	idx, err := vector.NewFlatIndex(dim)
	if err != nil {
		return nil, err
	}
	batchSize := e.deps.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	n := corpus.Len()
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
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
		docVecs, err := e.deps.DocEncoder.EmbedBatch(ctx, e.deps.Compute, texts)
		if err != nil {
			return nil, fmt.Errorf("embed documents at %d: %w", start, err)
		}
		encVecs, err := e.deps.Encoder.EmbedBatch(ctx, e.deps.Compute, texts)
		if err != nil {
			return nil, fmt.Errorf("embed documents at %d: %w", start, err)
		}
		joined := make([][]float32, len(batch))
		for i := range batch {
			vec := make([]float32, 0, dim)
			vec = append(vec, docVecs[i]...)
			vec = append(vec, encVecs[i]...)
			joined[i] = vec
		}
		if err := idx.Add(ctx, ids, joined); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Retrieve answers a single query with one method. "dpr" and "encoder" go
// through the combined index; every other known method queries its own
// retriever. An unconfigured method yields *UnknownMethodError.
func (e *Ensemble) Retrieve(ctx context.Context, method, query string, k int) ([]models.MethodResult, error) {
	if !e.built {
		return nil, fmt.Errorf("ensemble: not built")
	}
	if (method == "dpr" || method == "encoder") && e.combined != nil {
		return e.retrieveCombined(ctx, method, query, k)
	}
	r, ok := e.retrievers[method]
	if !ok {
		return nil, &UnknownMethodError{Method: method}
	}
	return r.Query(ctx, query, k)
}

// retrieveCombined embeds the query with the method's query-side encoder,
// zero-pads it on the right to the combined width and searches the joint
// index. Both methods pad on the right, so the query only scores against the
// dual-encoder half of each stored vector.
func (e *Ensemble) retrieveCombined(ctx context.Context, method, query string, k int) ([]models.MethodResult, error) {
	var enc embedding.Embedder
	switch method {
	case "dpr":
		enc = e.deps.QueryEncoder
	case "encoder":
		enc = e.deps.Encoder
	}
	if enc == nil {
		return nil, fmt.Errorf("ensemble: no query encoder for method %q", method)
	}
	vec, err := enc.Embed(ctx, e.deps.Compute, query)
	if err != nil {
		return nil, fmt.Errorf("ensemble: embed query: %w", err)
	}
	padded := make([]float32, e.combined.Dimensions())
	copy(padded, vec)
	neighbors, err := e.combined.Search(ctx, padded, k)
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

// Methods returns the usable method names in sorted order.
func (e *Ensemble) Methods() []string {
	names := make([]string, 0, len(e.retrievers)+2)
	for name := range e.retrievers {
		names = append(names, name)
	}
	if e.combined != nil {
		if _, ok := e.retrievers["dpr"]; !ok {
			names = append(names, "dpr")
		}
		names = append(names, "encoder")
	}
	sort.Strings(names)
	return names
}

// HasMethod reports whether Retrieve can answer the given method.
func (e *Ensemble) HasMethod(method string) bool {
	if _, ok := e.retrievers[method]; ok {
		return true
	}
	return e.combined != nil && (method == "dpr" || method == "encoder")
}

// SaveIndex persists the combined dense index to path.
func (e *Ensemble) SaveIndex(path string) error {
	if e.combined == nil {
		return fmt.Errorf("ensemble: no combined index to save")
	}
	return e.combined.Save(path)
}

// RestoreIndex loads a previously saved combined index and pins subsequent
// combined queries to the given compute context. The stored vectors are
// device-neutral; only query embedding runs on the new target.
func (e *Ensemble) RestoreIndex(path string, cc embedding.ComputeContext) error {
	idx, err := vector.LoadFlatIndex(path)
	if err != nil {
		return fmt.Errorf("ensemble: restore index: %w", err)
	}
	e.combined = idx
	e.deps.Compute = cc
	e.built = true
	return nil
}
