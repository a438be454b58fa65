package retriever

import (
	"regexp"
	"strings"
)

// tokenPattern matches runs of letters and digits, apostrophes included,
// so "don't" stays one token.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// tokenize lowercases text and splits it into index terms.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
