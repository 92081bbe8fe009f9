// Package ranker scores candidate documents by the dot product of their
// term-frequency vectors with an idf-weighted query vector.
package ranker

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

// WeightedTerm is one effective query term. Weight is 1 for exact matches
// and the fuzzy match score otherwise.
type WeightedTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

type ScoredDoc struct {
	Doc   index.DocRef `json:"doc"`
	Score float64      `json:"score"`
}

// Stats is the subset of the index the ranker reads.
type Stats interface {
	IDF(term string) (float64, bool)
	TermFrequency(term string, doc index.DocRef) (float64, bool)
}

// Vector is a dense term-weight vector aligned with a []WeightedTerm.
type Vector []float64

// QueryVector returns idf(term) * weight for every term.
func QueryVector(terms []WeightedTerm, stats Stats) Vector {
	v := make(Vector, len(terms))
	for j, t := range terms {
		idf, _ := stats.IDF(t.Term)
		v[j] = idf * t.Weight
	}
	return v
}

// DocVector returns the normalised term frequency of each term in doc, or 0
// where the document has no posting for it.
func DocVector(terms []WeightedTerm, doc index.DocRef, stats Stats) Vector {
	v := make(Vector, len(terms))
	for j, t := range terms {
		if tf, ok := stats.TermFrequency(t.Term, doc); ok {
			v[j] = tf
		}
	}
	return v
}

// Dot returns the dot product of a and b. It panics if their lengths
// differ; ranking always builds aligned vectors.
func Dot(a, b Vector) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("ranker: vector length mismatch %d != %d", len(a), len(b)))
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Rank scores every candidate against terms and returns them by descending
// score, ties broken by ascending DocRef. A limit <= 0 returns all.
func Rank(terms []WeightedTerm, candidates []index.DocRef, stats Stats, limit int) []ScoredDoc {
	query := QueryVector(terms, stats)
	result := make([]ScoredDoc, 0, len(candidates))
	for _, doc := range candidates {
		result = append(result, ScoredDoc{
			Doc:   doc,
			Score: Dot(query, DocVector(terms, doc, stats)),
		})
	}
	return TopK(result, limit)
}

// Sort orders docs by descending score, then ascending DocRef.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool { return ranksBefore(docs[i], docs[j]) })
}
