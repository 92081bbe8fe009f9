// Package handler exposes the search engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/editdistance"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// MaxDistanceInput bounds each /distance operand in runes; the full matrix
// is quadratic in input length.
const MaxDistanceInput = 512

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
}

// IndexInfo is the read-only view of the index served by /index/stats.
type IndexInfo interface {
	DocCount() int
	TermCount() int
	Size() int64
	Snapshot() []index.TermEntry
}

type Handler struct {
	executor     SearchExecutor
	index        IndexInfo
	cache        *cache.QueryCache
	tracker      analytics.Tracker
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// Option configures optional collaborators. Each may be left nil.
type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithTracker(t analytics.Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLimits sets the default page size and the cap applied to ?limit.
func WithLimits(defaultLimit, maxResults int) Option {
	return func(h *Handler) {
		if defaultLimit > 0 {
			h.defaultLimit = defaultLimit
		}
		if maxResults > 0 {
			h.maxResults = maxResults
		}
	}
}

func New(exec SearchExecutor, ix IndexInfo, opts ...Option) *Handler {
	h := &Handler{
		executor:     exec,
		index:        ix,
		defaultLimit: 10,
		maxResults:   100,
		logger:       slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.defaultLimit = min(h.defaultLimit, h.maxResults)
	return h
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/distance", h.Distance)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type searchParams struct {
	query string
	mode  parser.Mode
	all   bool
	limit int
}

func (h *Handler) parseSearch(r *http.Request) (searchParams, error) {
	q := r.URL.Query()
	p := searchParams{query: q.Get("q"), limit: h.defaultLimit}

	mode, err := parser.ParseMode(q.Get("mode"))
	if err != nil {
		return p, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, err.Error())
	}
	p.mode = mode

	if v := q.Get("all"); v != "" {
		all, err := strconv.ParseBool(v)
		if err != nil {
			return p, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "all must be a boolean, got %q", v)
		}
		p.all = all
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return p, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "limit must be a positive integer")
		}
		p.limit = min(limit, h.maxResults)
	}
	return p, nil
}

// Search serves GET /api/v1/search?q=&mode=exact|fuzzy&all=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params, err := h.parseSearch(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	plan := parser.Parse(params.query, params.mode == parser.ModeExact, params.all)
	mode := plan.Mode.String()

	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, plan, params.limit)
	}
	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, params.limit, compute)
	} else {
		result, err = compute(ctx)
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.ObserveSearchError(mode)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		log.Error("search execution failed", "query", params.query, "mode", mode, "error", err)
		h.writeError(w, err)
		return
	}

	elapsed := time.Since(start)
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		// the entry may have been stored under a differently cased query
		hit := *result
		hit.Query = plan.RawQuery
		result = &hit
	}
	if h.metrics != nil {
		h.metrics.ObserveSearch(mode, cacheStatus, len(result.Results), elapsed.Seconds())
		if plan.Mode == parser.ModeFuzzy && !plan.Empty() {
			h.metrics.FuzzyExpansions.Observe(float64(len(result.Terms)))
		}
	}
	if h.tracker != nil {
		h.tracker.Track(h.event(r, plan, result, cacheHit, elapsed))
	}

	log.Info("search completed",
		"query", params.query,
		"mode", mode,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_us", elapsed.Microseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) event(r *http.Request, plan *parser.QueryPlan, result *executor.SearchResult, cacheHit bool, elapsed time.Duration) analytics.SearchEvent {
	eventType := analytics.EventSearch
	if result.TotalHits == 0 {
		eventType = analytics.EventZeroResult
	}
	ev := analytics.SearchEvent{
		Type:           eventType,
		Query:          plan.RawQuery,
		Mode:           plan.Mode.String(),
		Tokens:         plan.Terms,
		EffectiveTerms: len(result.Terms),
		TotalHits:      result.TotalHits,
		Returned:       len(result.Results),
		LatencyMicros:  elapsed.Microseconds(),
		CacheHit:       cacheHit,
		RequestID:      logger.RequestID(r.Context()),
		Timestamp:      time.Now().UTC(),
	}
	if plan.Mode == parser.ModeFuzzy {
		ev.FuzzyExpansions = len(result.Terms)
	}
	return ev
}

type operationJSON struct {
	Position int    `json:"position"`
	Char     string `json:"char"`
	Kind     string `json:"kind"`
}

type distanceResponse struct {
	A          string          `json:"a"`
	B          string          `json:"b"`
	Distance   int             `json:"distance"`
	Operations []operationJSON `json:"operations"`
	Summary    string          `json:"summary"`
	Matrix     [][]int         `json:"matrix,omitempty"`
}

// Distance serves GET /api/v1/distance?a=&b=[&matrix=true]. The operations
// describe turning b into a.
func (h *Handler) Distance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if utf8.RuneCountInString(a) > MaxDistanceInput || utf8.RuneCountInString(b) > MaxDistanceInput {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"a and b must be at most %d characters", MaxDistanceInput))
		return
	}

	res := editdistance.Compute(a, b, true)
	ops, err := res.Operations()
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", apperrors.ErrInternal, err))
		return
	}
	resp := distanceResponse{
		A:          a,
		B:          b,
		Distance:   res.Distance,
		Operations: make([]operationJSON, len(ops)),
		Summary:    editdistance.Summarize(ops).String(),
	}
	for i, op := range ops {
		resp.Operations[i] = operationJSON{Position: op.Position, Char: string(op.Char), Kind: op.Kind.String()}
	}
	if ok, _ := strconv.ParseBool(q.Get("matrix")); ok {
		resp.Matrix = res.Matrix()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type termStat struct {
	Term         string  `json:"term"`
	DocFrequency int     `json:"doc_frequency"`
	IDF          float64 `json:"idf"`
}

// IndexStats serves GET /api/v1/index/stats[?top=N]. Top terms are those
// present in the most documents.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "top must be a non-negative integer"))
			return
		}
		top = n
	}

	entries := h.index.Snapshot()
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Postings) > len(entries[j].Postings)
	})
	if len(entries) > top {
		entries = entries[:top]
	}
	terms := make([]termStat, len(entries))
	for i, e := range entries {
		terms[i] = termStat{Term: e.Term, DocFrequency: len(e.Postings), IDF: e.IDF}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents":  h.index.DocCount(),
		"terms":      h.index.TermCount(),
		"size_bytes": h.index.Size(),
		"top_terms":  terms,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
