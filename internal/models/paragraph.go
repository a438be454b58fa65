// Package models defines core data structures for paragraphs, clauses, and retrieval results.
package models

// Paragraph is one normalized retrieval unit produced by extraction.
// Immutable once created; IDs are unique and monotonic within a corpus.
type Paragraph struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Source    string `json:"source"`
	CharCount int    `json:"char_count"`
	WordCount int    `json:"word_count"`
}

// Corpus is the ordered paragraph sequence for one extraction run.
type Corpus struct {
	Paragraphs []Paragraph `json:"paragraphs"`
	// Unsupported lists file names skipped because of an unrecognized extension.
	Unsupported []string `json:"unsupported,omitempty"`
}

// ByID returns a lookup from paragraph ID to paragraph.
func (c *Corpus) ByID() map[int]Paragraph {
	m := make(map[int]Paragraph, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		m[p.ID] = p
	}
	return m
}

// Texts returns the paragraph texts in corpus order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		out[i] = p.Text
	}
	return out
}

// Len returns the number of paragraphs.
func (c *Corpus) Len() int {
	return len(c.Paragraphs)
}
