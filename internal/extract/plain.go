package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain splits text content on blank-line boundaries.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) ([]string, error) {
	s := string(content)
	if !utf8.Valid(content) {
		s = strings.ToValidUTF8(s, "�")
	}
	return splitBlankLines(s), nil
}

// splitBlankLines splits text on blank-line boundaries, trimming each block
// and dropping empty ones.
func splitBlankLines(text string) []string {
	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}
