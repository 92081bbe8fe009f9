// Package matcher resolves query tokens to index terms, either exactly or
// by normalised Levenshtein distance.
package matcher

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/editdistance"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
)

const (
	DefaultMaxNormalizedDistance = 0.8
	DefaultScoreExponent         = 2.0
)

// Vocabulary is the subset of the index the matcher reads.
type Vocabulary interface {
	Contains(term string) bool
	Vocabulary() []string
}

// Config holds the fuzzy matching constants. A vocabulary term s matches a
// query token q when Distance(q, s)/len(s) < MaxNormalizedDistance, and is
// weighted (1 - normalized)^ScoreExponent.
type Config struct {
	MaxNormalizedDistance float64 `yaml:"maxNormalizedDistance"`
	ScoreExponent         float64 `yaml:"scoreExponent"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MaxNormalizedDistance: DefaultMaxNormalizedDistance,
		ScoreExponent:         DefaultScoreExponent,
	}
}

// Validate checks that the constants are usable.
func (c Config) Validate() error {
	if c.MaxNormalizedDistance <= 0 || c.MaxNormalizedDistance > 1 {
		return fmt.Errorf("maxNormalizedDistance must be in (0, 1], got %v", c.MaxNormalizedDistance)
	}
	if c.ScoreExponent <= 0 {
		return fmt.Errorf("scoreExponent must be positive, got %v", c.ScoreExponent)
	}
	return nil
}

// Matcher resolves query tokens against a vocabulary. It holds no mutable
// state and may be shared.
type Matcher struct {
	cfg Config
}

func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Config returns the matcher's thresholds.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Exact keeps every token present in vocab, with weight 1. Repeated tokens
// are kept.
func (m *Matcher) Exact(tokens []string, vocab Vocabulary) []ranker.WeightedTerm {
	terms := make([]ranker.WeightedTerm, 0, len(tokens))
	for _, tok := range tokens {
		if vocab.Contains(tok) {
			terms = append(terms, ranker.WeightedTerm{Term: tok, Weight: 1})
		}
	}
	return terms
}

// Fuzzy returns, for every token, each vocabulary term within the distance
// threshold. One token may expand to several terms; the same term may be
// produced by several tokens.
func (m *Matcher) Fuzzy(tokens []string, vocab Vocabulary) []ranker.WeightedTerm {
	terms := make([]ranker.WeightedTerm, 0, len(tokens))
	words := vocab.Vocabulary()
	for _, tok := range tokens {
		for _, word := range words {
			if score, ok := m.Score(tok, word); ok {
				terms = append(terms, ranker.WeightedTerm{Term: word, Weight: score})
			}
		}
	}
	return terms
}

// Score reports whether term is a fuzzy match for token and with what
// weight.
func (m *Matcher) Score(token, term string) (float64, bool) {
	length := utf8.RuneCountInString(term)
	if length == 0 {
		return 0, false
	}
	normalized := float64(editdistance.Distance(token, term)) / float64(length)
	if normalized >= m.cfg.MaxNormalizedDistance {
		return 0, false
	}
	return math.Pow(1-normalized, m.cfg.ScoreExponent), true
}
