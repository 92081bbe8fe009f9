package ranker

import "container/heap"

// TopK returns the k best docs in ranked order without sorting the whole
// slice. A k <= 0 or k >= len(docs) sorts and returns everything.
func TopK(docs []ScoredDoc, k int) []ScoredDoc {
	if k <= 0 || k >= len(docs) {
		out := append([]ScoredDoc(nil), docs...)
		Sort(out)
		return out
	}
	h := make(worstFirst, 0, k+1)
	for _, d := range docs {
		heap.Push(&h, d)
		if h.Len() > k {
			heap.Pop(&h)
		}
	}
	out := make([]ScoredDoc, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(ScoredDoc)
	}
	return out
}

// ranksBefore is the result order: higher score first, then lower DocRef.
func ranksBefore(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Doc < b.Doc
}

// worstFirst is a min-heap on result order; its root is the doc that would
// be dropped next.
type worstFirst []ScoredDoc

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return ranksBefore(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
