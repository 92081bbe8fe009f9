package ranker

import (
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	idf map[string]float64
	tf  map[string]map[index.DocRef]float64
}

func (f fakeStats) IDF(term string) (float64, bool) {
	v, ok := f.idf[term]
	return v, ok
}

func (f fakeStats) TermFrequency(term string, doc index.DocRef) (float64, bool) {
	v, ok := f.tf[term][doc]
	return v, ok
}

func TestDot(t *testing.T) {
	assert.Equal(t, 0.0, Dot(Vector{}, Vector{}))
	assert.InDelta(t, 11.0, Dot(Vector{1, 2}, Vector{3, 4}), 1e-12)
	assert.Panics(t, func() { Dot(Vector{1}, Vector{1, 2}) })
}

func TestVectors(t *testing.T) {
	stats := fakeStats{
		idf: map[string]float64{"cat": 2, "dog": 0.5},
		tf:  map[string]map[index.DocRef]float64{"cat": {0: 0.6}, "dog": {1: 0.8}},
	}
	terms := []WeightedTerm{{"cat", 1}, {"dog", 0.25}, {"fish", 1}}
	assert.Equal(t, Vector{2, 0.125, 0}, QueryVector(terms, stats))
	assert.Equal(t, Vector{0.6, 0, 0}, DocVector(terms, 0, stats))
	assert.Equal(t, Vector{0, 0.8, 0}, DocVector(terms, 1, stats))
}

func TestRankOrdersByScoreThenDoc(t *testing.T) {
	stats := fakeStats{
		idf: map[string]float64{"a": 1, "b": 2},
		tf: map[string]map[index.DocRef]float64{
			"a": {0: 0.5, 1: 0.5, 2: 1},
			"b": {3: 0.5},
		},
	}
	terms := []WeightedTerm{{"a", 1}, {"b", 1}}
	got := Rank(terms, []index.DocRef{3, 1, 0, 2}, stats, 0)
	require.Len(t, got, 4)
	assert.Equal(t, []ScoredDoc{
		{Doc: 2, Score: 1},
		{Doc: 3, Score: 1},
		{Doc: 0, Score: 0.5},
		{Doc: 1, Score: 0.5},
	}, got)

	limited := Rank(terms, []index.DocRef{3, 1, 0, 2}, stats, 2)
	assert.Equal(t, got[:2], limited)
}

func TestRankAgainstIndex(t *testing.T) {
	ix := index.Build([]index.Indexable{text("the cat sat"), text("the dog sat"), text("birds fly")})
	got := Rank([]WeightedTerm{{"sat", 1}}, []index.DocRef{1, 0}, ix, 0)
	require.Len(t, got, 2)
	assert.Equal(t, index.DocRef(0), got[0].Doc)
	assert.Equal(t, got[0].Score, got[1].Score)
	assert.InDelta(t, math.Log(1.5)/math.Sqrt(3), got[0].Score, 1e-12)
}

type text string

func (t text) Text() string { return string(t) }

func TestTopKMatchesFullSort(t *testing.T) {
	docs := []ScoredDoc{
		{Doc: 4, Score: 0.5},
		{Doc: 1, Score: 0.9},
		{Doc: 3, Score: 0.5},
		{Doc: 0, Score: 0.1},
		{Doc: 2, Score: 0.9},
		{Doc: 5, Score: 0.7},
	}
	full := append([]ScoredDoc(nil), docs...)
	Sort(full)

	for k := 0; k <= len(docs)+1; k++ {
		got := TopK(docs, k)
		want := full
		if k > 0 && k < len(full) {
			want = full[:k]
		}
		assert.Equal(t, want, got, "k=%d", k)
	}
	assert.Equal(t, index.DocRef(4), docs[0].Doc, "input must not be reordered")
}
