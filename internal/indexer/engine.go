// Package indexer turns a loaded corpus into a queryable engine: the
// inverted index plus an executor configured from the search settings.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/matcher"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// Engine owns an immutable index over the corpus.
type Engine struct {
	index   *index.Index[corpus.Document]
	builtAt time.Time
	took    time.Duration
	logger  *slog.Logger
}

// Stats describes the built index.
type Stats struct {
	Documents     int           `json:"documents"`
	Terms         int           `json:"terms"`
	SizeBytes     int64         `json:"size_bytes"`
	BuildDuration time.Duration `json:"build_duration"`
	BuiltAt       time.Time     `json:"built_at"`
}

// Build indexes docs. With more than one worker, tokenisation runs on an
// ants pool of that size; the result is identical either way.
func Build(ctx context.Context, docs []corpus.Document, workers int, m *metrics.Metrics) (*Engine, error) {
	log := slog.Default().With("component", "indexer")
	start := time.Now()

	var ix *index.Index[corpus.Document]
	if workers <= 1 || len(docs) < 2 {
		ix = index.Build(docs)
	} else {
		pool, err := ants.NewPool(workers)
		if err != nil {
			return nil, fmt.Errorf("creating index worker pool: %w", err)
		}
		defer pool.Release()
		ix, err = index.BuildConcurrent(ctx, docs, pool)
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{index: ix, builtAt: time.Now(), took: time.Since(start), logger: log}
	if m != nil {
		m.IndexBuildDuration.Observe(e.took.Seconds())
		m.SetIndexSize(ix.DocCount(), ix.TermCount())
	}
	log.Info("index built",
		"documents", ix.DocCount(),
		"terms", ix.TermCount(),
		"size_bytes", ix.Size(),
		"workers", workers,
		"took", e.took,
	)
	return e, nil
}

// Load reads the configured corpus and builds an engine over it. An empty
// corpus yields an empty engine rather than an error.
func Load(ctx context.Context, cfg *config.Config, db corpus.Querier, m *metrics.Metrics) (*Engine, error) {
	docs, err := corpus.Load(ctx, cfg.Corpus, db)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCorpusEmpty) {
			return nil, fmt.Errorf("loading corpus: %w", err)
		}
		slog.Warn("corpus is empty, serving an empty index", "source", cfg.Corpus.Source)
	}
	return Build(ctx, docs, cfg.Search.BuildWorkers, m)
}

// Index returns the built index.
func (e *Engine) Index() *index.Index[corpus.Document] {
	return e.index
}

func (e *Engine) Stats() Stats {
	return Stats{
		Documents:     e.index.DocCount(),
		Terms:         e.index.TermCount(),
		SizeBytes:     e.index.Size(),
		BuildDuration: e.took,
		BuiltAt:       e.builtAt,
	}
}

// MatcherConfig maps the search settings onto the fuzzy matcher.
func MatcherConfig(cfg config.SearchConfig) matcher.Config {
	return matcher.Config{
		MaxNormalizedDistance: cfg.MaxNormalizedDistance,
		ScoreExponent:         cfg.ScoreExponent,
	}
}

// Executor returns a query executor over the engine's index.
func (e *Engine) Executor(cfg config.SearchConfig, tracing bool) (*executor.Executor[corpus.Document], error) {
	mc := MatcherConfig(cfg)
	if err := mc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return executor.New(e.index, matcher.New(mc), executor.WithTracing(tracing)), nil
}
