// Package retriever implements the individual retrieval methods. Every
// variant wraps one technique behind the same build/query contract; scoring
// scales differ per method and are reconciled later by the analyser.
package retriever

import (
	"context"
	"fmt"

	"github.com/tenderlab/clausematch/internal/embedding"
	"github.com/tenderlab/clausematch/internal/models"
)

// Retriever builds a searchable index over a paragraph corpus and answers
// top-k queries for one retrieval technique.
type Retriever interface {
	Name() string
	Build(ctx context.Context, corpus *models.Corpus) error
	// Query returns up to k results in descending similarity order.
	Query(ctx context.Context, text string, k int) ([]models.MethodResult, error)
}

// Deps carries the capabilities a retriever may need. Lexical methods use
// none of them; the dense methods take their encoders and compute context
// from here.
type Deps struct {
	Encoder      embedding.Embedder // general-purpose encoder
	DocEncoder   embedding.Embedder // dual-encoder document side
	QueryEncoder embedding.Embedder // dual-encoder query side
	Compute      embedding.ComputeContext
	BatchSize    int
}

// Factory constructs one retriever variant from its dependencies.
type Factory func(deps Deps) (Retriever, error)

// Registry returns the closed set of known method constructors. New methods
// register here; dispatch logic elsewhere never changes.
func Registry() map[string]Factory {
	return map[string]Factory{
		"bm25":     func(Deps) (Retriever, error) { return NewBM25Retriever(), nil },
		"tfidf":    func(Deps) (Retriever, error) { return NewTFIDFRetriever(), nil },
		"flash":    func(Deps) (Retriever, error) { return NewFlashRetriever(), nil },
		"fulltext": func(Deps) (Retriever, error) { return NewFullTextRetriever() },
		"fuzzy":    func(Deps) (Retriever, error) { return NewFuzzyRetriever(), nil },
		"embedding": func(d Deps) (Retriever, error) {
			if d.Encoder == nil {
				return nil, fmt.Errorf("embedding method requires an encoder")
			}
			return NewDenseRetriever("embedding", d.Encoder, d.Encoder, d.Compute, d.BatchSize), nil
		},
		"dpr": func(d Deps) (Retriever, error) {
			if d.DocEncoder == nil || d.QueryEncoder == nil {
				return nil, fmt.Errorf("dpr method requires document and query encoders")
			}
			return NewDenseRetriever("dpr", d.DocEncoder, d.QueryEncoder, d.Compute, d.BatchSize), nil
		},
	}
}
