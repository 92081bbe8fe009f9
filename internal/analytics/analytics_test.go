package analytics

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/testutil/sqlfake"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *fakePublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []kafka.Event
	for _, b := range p.batches {
		all = append(all, b...)
	}
	return all
}

func event(query, mode string, hits int) SearchEvent {
	return SearchEvent{Type: EventSearch, Query: query, Mode: mode, TotalHits: hits, LatencyMicros: 100}
}

func TestCollectorBatchesBySize(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorConfig{BatchSize: 2, FlushInterval: time.Hour})
	c.Start(context.Background())

	c.Track(event("cat", "exact", 1))
	c.Track(event("dog", "fuzzy", 2))
	c.Track(event("fish", "fuzzy", 0))
	c.Close()

	got := pub.events()
	require.Len(t, got, 3)
	assert.Equal(t, "exact", got[0].Key)
	assert.Equal(t, "cat", got[0].Value.(SearchEvent).Query)
	assert.Equal(t, "fish", got[2].Value.(SearchEvent).Query)
	assert.Len(t, pub.batches[0], 2)
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorConfig{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	c.Start(context.Background())
	defer c.Close()

	c.Track(event("cat", "exact", 1))
	assert.Eventually(t, func() bool { return len(pub.events()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollectorFlushesOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCollector(pub, CollectorConfig{BatchSize: 100, FlushInterval: time.Hour})
	c.Start(ctx)

	c.Track(event("cat", "exact", 1))
	cancel()
	c.Close()
	assert.Len(t, pub.events(), 1)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&fakePublisher{}, CollectorConfig{BufferSize: 1})
	c.Track(event("a", "exact", 1))
	c.Track(event("b", "exact", 1))
	assert.Equal(t, int64(1), c.Dropped())
}

func TestCollectorCountsFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, CollectorConfig{BatchSize: 1, FlushInterval: time.Hour})
	c.Start(context.Background())
	c.Track(event("a", "exact", 1))
	c.Close()
	assert.Equal(t, int64(1), c.Failed())

	assert.NotPanics(t, func() { c.Track(event("late", "exact", 1)) })
}

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	a.Track(SearchEvent{Query: "cat", Mode: "exact", TotalHits: 1, LatencyMicros: 10})
	a.Track(SearchEvent{Query: "cat", Mode: "exact", TotalHits: 1, LatencyMicros: 30, CacheHit: true})
	a.Track(SearchEvent{Query: "xyz", Mode: "fuzzy", TotalHits: 0, LatencyMicros: 20, FuzzyExpansions: 4})
	a.Track(SearchEvent{Query: "dgo", Mode: "fuzzy", TotalHits: 2, LatencyMicros: 40, FuzzyExpansions: 2})

	s := a.Stats()
	assert.Equal(t, int64(4), s.TotalSearches)
	assert.Equal(t, map[string]int64{"exact": 2, "fuzzy": 2}, s.ByMode)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(3), s.CacheMisses)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.Equal(t, 25.0, s.AvgLatencyMicros)
	assert.Equal(t, int64(30), s.P50LatencyMicros)
	assert.Equal(t, int64(40), s.P99LatencyMicros)
	assert.Equal(t, 3.0, s.AvgFuzzyExpansions)
	assert.Equal(t, []QueryCount{{"cat", 2}, {"dgo", 1}, {"xyz", 1}}, s.TopQueries)
	assert.Equal(t, []QueryCount{{"xyz", 1}}, s.ZeroResultQueries)
}

func TestAggregatorHandleMessage(t *testing.T) {
	a := NewAggregator()
	raw, err := json.Marshal(event("cat", "exact", 1))
	require.NoError(t, err)

	require.NoError(t, a.HandleMessage(context.Background(), []byte("exact"), raw))
	require.NoError(t, a.HandleMessage(context.Background(), nil, []byte("garbage")))
	assert.Equal(t, int64(1), a.Stats().TotalSearches)
}

func TestMultiTracker(t *testing.T) {
	a, b := NewAggregator(), NewAggregator()
	Multi(a, nil, b).Track(event("cat", "exact", 1))
	assert.Equal(t, int64(1), a.Stats().TotalSearches)
	assert.Equal(t, int64(1), b.Stats().TotalSearches)
}

func TestHandlerStats(t *testing.T) {
	a := NewAggregator()
	a.Track(event("cat", "exact", 1))

	rec := httptest.NewRecorder()
	NewHandler(a).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(1), got.TotalSearches)
}

func TestStoreSaveSnapshot(t *testing.T) {
	db, fake := sqlfake.Open()
	defer db.Close()
	store := NewStore(&postgres.Client{DB: db}, 10)

	require.NoError(t, store.SaveSnapshot(context.Background(), AggregatedStats{TotalSearches: 7}))

	execs := fake.Execs()
	require.Len(t, execs, 2)
	assert.Equal(t, insertSnapshot, execs[0].Query)
	assert.JSONEq(t, `7`, mustField(t, execs[0].Args[0], "total_searches"))
	assert.Equal(t, pruneSnapshots, execs[1].Query)
	assert.Equal(t, 1, fake.Commits())
}

func TestStoreSaveSnapshotRollsBack(t *testing.T) {
	db, fake := sqlfake.Open()
	defer db.Close()
	fake.FailExec(errors.New("disk full"))

	err := NewStore(&postgres.Client{DB: db}, 0).SaveSnapshot(context.Background(), AggregatedStats{})
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, fake.Rollbacks())
	assert.Equal(t, 0, fake.Commits())
}

func TestStoreLatestSnapshot(t *testing.T) {
	db, fake := sqlfake.Open()
	defer db.Close()
	store := NewStore(&postgres.Client{DB: db}, 0)

	fake.On(latestSnapshot, sqlfake.Result{Columns: []string{"data"}})
	got, err := store.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	fake.On(latestSnapshot, sqlfake.Result{
		Columns: []string{"data"},
		Rows:    [][]driver.Value{{[]byte(`{"total_searches":3}`)}},
	})
	got, err = store.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.TotalSearches)
}

func mustField(t *testing.T, arg driver.Value, field string) string {
	t.Helper()
	raw, ok := arg.([]byte)
	require.True(t, ok, "expected []byte arg, got %T", arg)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return string(m[field])
}
