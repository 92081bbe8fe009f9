// Package index builds an immutable in-memory inverted index with
// Euclidean-normalised term frequencies and inverse document frequencies.
package index

import (
	"math"
	"reflect"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
)

// Indexable is anything exposing a single text blob to index.
type Indexable interface {
	Text() string
}

// Identified is optionally implemented by documents carrying a stable
// external identifier.
type Identified interface {
	DocumentID() string
}

// Index is a read-only inverted index over a fixed slice of documents. It
// is safe for concurrent use once built.
type Index[T Indexable] struct {
	docs       []T
	docStats   []DocStats
	postings   map[string]PostingList
	tf         map[string][]float64
	idf        map[string]float64
	vocabulary []string
	size       int64
}

// analyzed is the per-document result of tokenisation, before merging into
// the global maps.
type analyzed struct {
	terms     []string
	positions map[string][]int
	freqs     map[string]float64
	tokens    int
}

// Build indexes docs. The slice is retained, not copied; callers must not
// modify it afterwards.
func Build[T Indexable](docs []T) *Index[T] {
	ix := newIndex(docs)
	for i, d := range docs {
		ix.merge(DocRef(i), analyze(textOf(d)))
	}
	ix.finish()
	return ix
}

func newIndex[T Indexable](docs []T) *Index[T] {
	return &Index[T]{
		docs:     docs,
		docStats: make([]DocStats, len(docs)),
		postings: make(map[string]PostingList),
		tf:       make(map[string][]float64),
		idf:      make(map[string]float64),
	}
}

// IsNil reports whether d is absent: a nil interface or a typed nil
// pointer, map, slice, func or channel.
func IsNil[T Indexable](d T) bool {
	if any(d) == nil {
		return true
	}
	switch v := reflect.ValueOf(d); v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func textOf[T Indexable](d T) string {
	if IsNil(d) {
		return ""
	}
	return d.Text()
}

func analyze(text string) analyzed {
	tokens := tokenizer.Tokenize(text)
	a := analyzed{
		positions: make(map[string][]int),
		tokens:    len(tokens),
	}
	for _, tok := range tokens {
		if _, seen := a.positions[tok.Term]; !seen {
			a.terms = append(a.terms, tok.Term)
		}
		a.positions[tok.Term] = append(a.positions[tok.Term], tok.Position)
	}
	var sumSquares float64
	for _, term := range a.terms {
		count := float64(len(a.positions[term]))
		sumSquares += count * count
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return a
	}
	a.freqs = make(map[string]float64, len(a.terms))
	for _, term := range a.terms {
		a.freqs[term] = float64(len(a.positions[term])) / norm
	}
	return a
}

// merge appends the document's postings and frequencies. Both lists of a
// term grow in the same call so they stay index-aligned.
func (ix *Index[T]) merge(ref DocRef, a analyzed) {
	ix.docStats[ref] = DocStats{Doc: ref, DocLen: a.tokens, Distinct: len(a.terms)}
	if a.freqs == nil {
		return
	}
	for _, term := range a.terms {
		positions := a.positions[term]
		ix.postings[term] = append(ix.postings[term], Posting{Doc: ref, Positions: positions})
		ix.tf[term] = append(ix.tf[term], a.freqs[term])
		ix.size += int64(len(term) + len(positions)*8 + 64)
	}
}

func (ix *Index[T]) finish() {
	total := float64(len(ix.docs))
	ix.vocabulary = make([]string, 0, len(ix.postings))
	for term, postings := range ix.postings {
		ix.idf[term] = math.Log(total / float64(len(postings)))
		ix.vocabulary = append(ix.vocabulary, term)
	}
	sort.Strings(ix.vocabulary)
}

// Postings returns the postings list of term, or nil if absent.
func (ix *Index[T]) Postings(term string) PostingList {
	return ix.postings[term]
}

// TermFrequencies returns the normalised frequencies of term, aligned with
// Postings(term).
func (ix *Index[T]) TermFrequencies(term string) []float64 {
	return ix.tf[term]
}

// TermFrequency returns the normalised frequency of term in doc.
func (ix *Index[T]) TermFrequency(term string, doc DocRef) (float64, bool) {
	postings := ix.postings[term]
	i := sort.Search(len(postings), func(i int) bool {
		return postings[i].Doc >= doc
	})
	if i >= len(postings) || postings[i].Doc != doc {
		return 0, false
	}
	return ix.tf[term][i], true
}

// IDF returns ln(N/df) for term. The second result is false if the term is
// not indexed.
func (ix *Index[T]) IDF(term string) (float64, bool) {
	v, ok := ix.idf[term]
	return v, ok
}

// Contains reports whether term is in the vocabulary.
func (ix *Index[T]) Contains(term string) bool {
	_, ok := ix.postings[term]
	return ok
}

// Vocabulary returns all indexed terms in lexical order. The returned slice
// is shared and must not be modified.
func (ix *Index[T]) Vocabulary() []string {
	return ix.vocabulary
}

// DocCount returns the number of documents the index was built from,
// including those without any tokens.
func (ix *Index[T]) DocCount() int {
	return len(ix.docs)
}

// TermCount returns the number of distinct terms.
func (ix *Index[T]) TermCount() int {
	return len(ix.postings)
}

// Documents returns the original document slice.
func (ix *Index[T]) Documents() []T {
	return ix.docs
}

// Document returns the document behind ref.
func (ix *Index[T]) Document(ref DocRef) (T, bool) {
	if ref < 0 || int(ref) >= len(ix.docs) {
		var zero T
		return zero, false
	}
	return ix.docs[ref], true
}

// Stats returns token statistics for ref.
func (ix *Index[T]) Stats(ref DocRef) (DocStats, bool) {
	if ref < 0 || int(ref) >= len(ix.docStats) {
		return DocStats{}, false
	}
	return ix.docStats[ref], true
}

// Size is a rough estimate of the memory held by postings, in bytes.
func (ix *Index[T]) Size() int64 {
	return ix.size
}

// Snapshot returns every term with its postings, frequencies and idf,
// sorted by term.
func (ix *Index[T]) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(ix.vocabulary))
	for _, term := range ix.vocabulary {
		entries = append(entries, TermEntry{
			Term:        term,
			Postings:    ix.postings[term],
			Frequencies: ix.tf[term],
			IDF:         ix.idf[term],
		})
	}
	return entries
}
