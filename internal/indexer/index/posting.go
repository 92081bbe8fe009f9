package index

// DocRef identifies a document by its position in the slice the index was
// built from.
type DocRef int

// Posting records where a term occurs within one document. Positions are
// token indices, in increasing order.
type Posting struct {
	Doc       DocRef `json:"doc"`
	Positions []int  `json:"positions"`
}

// Frequency is the raw number of occurrences of the term in the document.
func (p Posting) Frequency() int {
	return len(p.Positions)
}

// PostingList holds one Posting per document containing a term, ordered by
// DocRef.
type PostingList []Posting

// Docs returns the document references of the list, in order.
func (pl PostingList) Docs() []DocRef {
	refs := make([]DocRef, len(pl))
	for i, p := range pl {
		refs[i] = p.Doc
	}
	return refs
}

// TermEntry is a flattened view of everything the index knows about one
// term.
type TermEntry struct {
	Term        string      `json:"term"`
	Postings    PostingList `json:"postings"`
	Frequencies []float64   `json:"frequencies"`
	IDF         float64     `json:"idf"`
}

// DocStats describes a single indexed document.
type DocStats struct {
	Doc      DocRef `json:"doc"`
	DocLen   int    `json:"doc_len"`
	Distinct int    `json:"distinct_terms"`
}
