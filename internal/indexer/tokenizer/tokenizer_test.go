package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "the cat sat", []string{"the", "cat", "sat"}},
		{"lowercases", "The CAT Sat", []string{"the", "cat", "sat"}},
		{"hyphen splits", "state-of-the-art", []string{"state", "of", "the", "art"}},
		{"mixed separator runs", "a - -b\t\n c--d", []string{"a", "b", "c", "d"}},
		{"keeps punctuation", "hello, world!", []string{"hello,", "world!"}},
		{"leading and trailing separators", "  -cat-  ", []string{"cat"}},
		{"unicode", "Straße ÜBER", []string{"straße", "über"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.text)
			got := make([]string, 0, len(tokens))
			for i, tok := range tokens {
				assert.Equal(t, i, tok.Position)
				got = append(got, tok.Term)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, Terms(tt.text))
		})
	}
}

func TestTokenizeEmpty(t *testing.T) {
	for _, text := range []string{"", " ", "\t\n", "---", " - "} {
		assert.Empty(t, Tokenize(text), "text %q", text)
		assert.Empty(t, Terms(text), "text %q", text)
	}
}
