package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/matcher"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/tracing"
)

// Hit is one ranked document in a SearchResult.
type Hit struct {
	Doc   index.DocRef `json:"doc"`
	ID    string       `json:"id,omitempty"`
	Score float64      `json:"score"`
	Text  string       `json:"text"`
}

type SearchResult struct {
	Query     string                `json:"query"`
	Mode      string                `json:"mode"`
	TotalHits int                   `json:"total_hits"`
	Results   []Hit                 `json:"results"`
	Terms     []ranker.WeightedTerm `json:"terms"`
	TermStats map[string]int        `json:"term_stats"`
}

// Executor answers queries against a built index. It keeps no per-query
// state and is safe for concurrent use.
type Executor[T index.Indexable] struct {
	index   *index.Index[T]
	matcher *matcher.Matcher
	tracing bool
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	tracing bool
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracing records a span per query stage.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

// New returns an Executor over ix. A nil matcher uses the default fuzzy
// thresholds.
func New[T index.Indexable](ix *index.Index[T], m *matcher.Matcher, opts ...Option) *Executor[T] {
	o := options{logger: slog.Default().With("component", "query-executor")}
	for _, opt := range opts {
		opt(&o)
	}
	if m == nil {
		m = matcher.New(matcher.DefaultConfig())
	}
	return &Executor[T]{
		index:   ix,
		matcher: m,
		tracing: o.tracing,
		logger:  o.logger,
	}
}

// Index returns the index the executor reads.
func (e *Executor[T]) Index() *index.Index[T] {
	return e.index
}

// Query tokenises text, resolves its tokens exactly or fuzzily, and returns
// matching documents by descending TF-IDF score. An empty query returns all
// documents in their original order if returnAllIfEmpty is set, otherwise
// nothing.
func (e *Executor[T]) Query(text string, exact bool, returnAllIfEmpty bool) []index.DocRef {
	plan := parser.Parse(text, exact, returnAllIfEmpty)
	_, ranked, _ := e.run(context.Background(), plan, 0)
	refs := make([]index.DocRef, len(ranked))
	for i, sd := range ranked {
		refs[i] = sd.Doc
	}
	return refs
}

// Resolve maps refs back to the indexed documents.
func (e *Executor[T]) Resolve(refs []index.DocRef) []T {
	docs := make([]T, 0, len(refs))
	for _, ref := range refs {
		if d, ok := e.index.Document(ref); ok {
			docs = append(docs, d)
		}
	}
	return docs
}

// Execute runs plan and returns at most limit hits (all if limit <= 0).
func (e *Executor[T]) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing query %q: %w", plan.RawQuery, err)
	}
	if e.tracing {
		var span *tracing.Span
		ctx, span = tracing.StartChildSpan(ctx, "search.execute")
		span.SetAttr("mode", plan.Mode.String())
		span.SetAttr("tokens", len(plan.Terms))
		defer func() {
			span.End()
			span.LogTo(e.logger)
		}()
	}

	terms, ranked, totalHits := e.run(ctx, plan, limit)
	termStats := make(map[string]int, len(terms))
	for _, t := range terms {
		termStats[t.Term] = len(e.index.Postings(t.Term))
	}
	result := &SearchResult{
		Query:     plan.RawQuery,
		Mode:      plan.Mode.String(),
		TotalHits: totalHits,
		Results:   e.hits(ranked),
		Terms:     terms,
		TermStats: termStats,
	}
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"mode", plan.Mode.String(),
		"tokens", plan.Terms,
		"effective_terms", len(terms),
		"candidates", totalHits,
		"results", len(result.Results),
	)
	return result, nil
}

// stage runs fn inside a child span when tracing is on. fn receives a nil
// span otherwise.
func (e *Executor[T]) stage(ctx context.Context, name string, fn func(*tracing.Span)) {
	if !e.tracing {
		fn(nil)
		return
	}
	_, span := tracing.StartChildSpan(ctx, name)
	defer span.End()
	fn(span)
}

func (e *Executor[T]) run(ctx context.Context, plan *parser.QueryPlan, limit int) ([]ranker.WeightedTerm, []ranker.ScoredDoc, int) {
	if plan.Empty() {
		if !plan.ReturnAllIfEmpty {
			return nil, []ranker.ScoredDoc{}, 0
		}
		n := e.index.DocCount()
		all := make([]ranker.ScoredDoc, n)
		for i := range all {
			all[i] = ranker.ScoredDoc{Doc: index.DocRef(i)}
		}
		if limit > 0 && len(all) > limit {
			all = all[:limit]
		}
		return nil, all, n
	}

	var terms []ranker.WeightedTerm
	e.stage(ctx, "search.resolve", func(span *tracing.Span) {
		if plan.Exact() {
			terms = e.matcher.Exact(plan.Terms, e.index)
		} else {
			terms = e.matcher.Fuzzy(plan.Terms, e.index)
		}
		span.SetAttr("effective_terms", len(terms))
	})

	var candidates []index.DocRef
	e.stage(ctx, "search.candidates", func(span *tracing.Span) {
		candidates = e.candidates(terms)
		span.SetAttr("candidates", len(candidates))
	})

	var ranked []ranker.ScoredDoc
	e.stage(ctx, "search.rank", func(span *tracing.Span) {
		ranked = ranker.Rank(terms, candidates, e.index, limit)
		span.SetAttr("ranked", len(ranked))
	})
	return terms, ranked, len(candidates)
}

// candidates returns every document with a posting for at least one term,
// in DocRef order.
func (e *Executor[T]) candidates(terms []ranker.WeightedTerm) []index.DocRef {
	seen := make(map[index.DocRef]struct{})
	for _, t := range terms {
		for _, p := range e.index.Postings(t.Term) {
			seen[p.Doc] = struct{}{}
		}
	}
	refs := make([]index.DocRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}

func (e *Executor[T]) hits(ranked []ranker.ScoredDoc) []Hit {
	hits := make([]Hit, 0, len(ranked))
	for _, sd := range ranked {
		d, _ := e.index.Document(sd.Doc)
		hit := Hit{Doc: sd.Doc, Score: sd.Score}
		if !index.IsNil(d) {
			hit.Text = d.Text()
			if id, ok := any(d).(index.Identified); ok {
				hit.ID = id.DocumentID()
			}
		}
		hits = append(hits, hit)
	}
	return hits
}
