package models

import (
	"encoding/json"
	"fmt"
)

// MethodResult is one retrieval method's opinion of one paragraph's relevance
// to one clause. Similarity scales differ per method family; the analyser
// normalizes before cross-method comparison.
type MethodResult struct {
	ID         int     `json:"id"`
	Similarity float64 `json:"similarity"`
}

// MethodResults is an ordered result list for one (clause, method) pair.
//
// On the wire some methods emit a flat list and others a list-of-lists
// (batched). UnmarshalJSON accepts both and flattens batches in order, so
// everything past the decode boundary sees one canonical shape.
type MethodResults []MethodResult

// UnmarshalJSON decodes either [ {id, similarity}, ... ] or
// [ [ {id, similarity}, ... ], ... ].
func (r *MethodResults) UnmarshalJSON(data []byte) error {
	var flat []MethodResult
	if err := json.Unmarshal(data, &flat); err == nil {
		*r = flat
		return nil
	}
	var nested [][]MethodResult
	if err := json.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("results are neither a flat list nor a list of lists: %w", err)
	}
	out := make([]MethodResult, 0)
	for _, batch := range nested {
		out = append(out, batch...)
	}
	*r = out
	return nil
}

// ResultSet holds every retrieval result of one run:
// clause ID -> method name -> ordered results.
type ResultSet map[string]map[string]MethodResults
