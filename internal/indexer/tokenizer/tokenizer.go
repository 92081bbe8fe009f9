// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input and splits it on runs of whitespace and hyphens.
// Documents and queries go through the same function so that fuzzy
// matching compares tokens against one normalised vocabulary.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single normalised term and its position in the
// token sequence of the text it came from.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into a slice of lower-cased Tokens. Positions are
// 0-based indices into the returned sequence, not byte offsets. Empty or
// whitespace-only input yields an empty slice.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}

// Terms returns only the terms of Tokenize(text), in order.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), isSeparator)
}

func isSeparator(r rune) bool {
	return r == '-' || unicode.IsSpace(r)
}
