package models

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Clause is one externally supplied search query, keyed by clause ID.
type Clause struct {
	ID   string
	Text string
}

// clauseEntry is the wire shape of one clause in the companion dataset:
// {"<clause_id>": {"Clause": "<display text>"}}.
type clauseEntry struct {
	Clause string `json:"Clause"`
}

// ClauseSet maps clause ID to display text.
type ClauseSet map[string]string

// LoadClauses reads a clause dataset file. Returns an error if the file
// cannot be read or parsed.
func LoadClauses(path string) (ClauseSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clause file: %w", err)
	}
	var raw map[string]clauseEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse clause file: %w", err)
	}
	set := make(ClauseSet, len(raw))
	for id, entry := range raw {
		set[id] = entry.Clause
	}
	return set, nil
}

// SortedIDs returns clause IDs in lexicographic order. Query execution and
// aggregation iterate clauses in this order so runs are deterministic.
func (s ClauseSet) SortedIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
