package index

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc string

func (d doc) Text() string { return string(d) }

var sample = []doc{"the cat sat", "the dog sat", "birds fly"}

func TestBuildPostings(t *testing.T) {
	ix := Build(sample)

	assert.Equal(t, 3, ix.DocCount())
	assert.Equal(t, 6, ix.TermCount())
	assert.Equal(t, []string{"birds", "cat", "dog", "fly", "sat", "the"}, ix.Vocabulary())

	assert.Equal(t, PostingList{
		{Doc: 0, Positions: []int{0}},
		{Doc: 1, Positions: []int{0}},
	}, ix.Postings("the"))
	assert.Equal(t, PostingList{{Doc: 0, Positions: []int{1}}}, ix.Postings("cat"))
	assert.Nil(t, ix.Postings("missing"))
	assert.False(t, ix.Contains("missing"))
	assert.True(t, ix.Contains("fly"))
}

func TestBuildRepeatedTerms(t *testing.T) {
	ix := Build([]doc{"a b a-a"})
	assert.Equal(t, PostingList{{Doc: 0, Positions: []int{0, 2, 3}}}, ix.Postings("a"))
	assert.Equal(t, 3, ix.Postings("a")[0].Frequency())

	norm := math.Sqrt(3*3 + 1*1)
	tf, ok := ix.TermFrequency("a", 0)
	require.True(t, ok)
	assert.InDelta(t, 3/norm, tf, 1e-12)
	tf, ok = ix.TermFrequency("b", 0)
	require.True(t, ok)
	assert.InDelta(t, 1/norm, tf, 1e-12)
}

func TestTermFrequenciesAreUnitLength(t *testing.T) {
	docs := []doc{
		"the cat sat on the mat",
		"a a a b b c",
		"single",
		"",
		"mixed-Case MIXED case words",
	}
	ix := Build(docs)

	sums := make(map[DocRef]float64)
	for _, term := range ix.Vocabulary() {
		postings := ix.Postings(term)
		freqs := ix.TermFrequencies(term)
		require.Len(t, freqs, len(postings), "term %q", term)
		require.NotEmpty(t, postings, "term %q", term)
		assert.Equal(t, strings.ToLower(term), term)
		for i, p := range postings {
			sums[p.Doc] += freqs[i] * freqs[i]
		}
	}
	for ref, d := range docs {
		if d == "" {
			_, ok := sums[DocRef(ref)]
			assert.False(t, ok)
			continue
		}
		assert.InDelta(t, 1.0, sums[DocRef(ref)], 1e-9, "doc %d", ref)
	}
}

func TestIDF(t *testing.T) {
	ix := Build([]doc{"the cat sat", "the dog sat", "the bird"})

	idf, ok := ix.IDF("the")
	require.True(t, ok)
	assert.Zero(t, idf)

	idf, ok = ix.IDF("sat")
	require.True(t, ok)
	assert.InDelta(t, math.Log(3.0/2.0), idf, 1e-12)

	idf, ok = ix.IDF("cat")
	require.True(t, ok)
	assert.InDelta(t, math.Log(3.0), idf, 1e-12)

	_, ok = ix.IDF("fish")
	assert.False(t, ok)

	for _, term := range ix.Vocabulary() {
		idf, _ := ix.IDF(term)
		assert.GreaterOrEqual(t, idf, 0.0)
		if idf == 0 {
			assert.Len(t, ix.Postings(term), ix.DocCount())
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	ix := Build([]doc{})
	assert.Zero(t, ix.DocCount())
	assert.Zero(t, ix.TermCount())
	assert.Empty(t, ix.Vocabulary())
	assert.Empty(t, ix.Snapshot())

	ix = Build([]doc{"", "   "})
	assert.Equal(t, 2, ix.DocCount())
	assert.Zero(t, ix.TermCount())
	stats, ok := ix.Stats(1)
	require.True(t, ok)
	assert.Zero(t, stats.DocLen)
}

func TestBuildNilInterfaceDocument(t *testing.T) {
	ix := Build([]Indexable{doc("hello world"), nil})
	assert.Equal(t, 2, ix.DocCount())
	assert.Equal(t, 2, ix.TermCount())
	d, ok := ix.Document(1)
	require.True(t, ok)
	assert.Nil(t, d)
}

type note struct{ body string }

func (n *note) Text() string { return n.body }

func TestBuildTypedNilDocument(t *testing.T) {
	docs := []*note{{body: "hello world"}, nil}
	ix := Build(docs)
	assert.Equal(t, 2, ix.DocCount())
	assert.Equal(t, []string{"hello", "world"}, ix.Vocabulary())
	stats, ok := ix.Stats(1)
	require.True(t, ok)
	assert.Zero(t, stats.DocLen)

	var nilNote *note
	mixed := Build([]Indexable{doc("hello"), nilNote})
	assert.Equal(t, 1, mixed.TermCount())
}

func TestDocumentAccessors(t *testing.T) {
	ix := Build(sample)
	d, ok := ix.Document(2)
	require.True(t, ok)
	assert.Equal(t, doc("birds fly"), d)
	_, ok = ix.Document(3)
	assert.False(t, ok)
	_, ok = ix.Document(-1)
	assert.False(t, ok)
	assert.Equal(t, sample, ix.Documents())

	stats, ok := ix.Stats(0)
	require.True(t, ok)
	assert.Equal(t, DocStats{Doc: 0, DocLen: 3, Distinct: 3}, stats)

	_, ok = ix.TermFrequency("cat", 1)
	assert.False(t, ok)
	assert.Positive(t, ix.Size())
}

func TestSnapshot(t *testing.T) {
	ix := Build(sample)
	entries := ix.Snapshot()
	require.Len(t, entries, 6)
	assert.Equal(t, "birds", entries[0].Term)
	assert.Equal(t, "the", entries[5].Term)
	assert.InDelta(t, math.Log(3.0/2.0), entries[5].IDF, 1e-12)
	assert.Equal(t, []DocRef{0, 1}, entries[5].Postings.Docs())
}

func TestBuildConcurrentMatchesBuild(t *testing.T) {
	docs := make([]doc, 0, 200)
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	for i := 0; i < 200; i++ {
		docs = append(docs, doc(strings.Join([]string{
			words[i%len(words)], words[(i*7)%len(words)], words[(i/3)%len(words)],
		}, " ")))
	}
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	got, err := BuildConcurrent(context.Background(), docs, pool)
	require.NoError(t, err)
	want := Build(docs)
	assert.Equal(t, want.Snapshot(), got.Snapshot())
	assert.Equal(t, want.DocCount(), got.DocCount())
}

func TestBuildConcurrentCancelled(t *testing.T) {
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = BuildConcurrent(ctx, sample, pool)
	assert.ErrorIs(t, err, context.Canceled)
}
