package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// SearchEvent describes one answered query.
type SearchEvent struct {
	Type            EventType `json:"type"`
	Query           string    `json:"query"`
	Mode            string    `json:"mode"`
	Tokens          []string  `json:"tokens"`
	EffectiveTerms  int       `json:"effective_terms"`
	FuzzyExpansions int       `json:"fuzzy_expansions"`
	TotalHits       int       `json:"total_hits"`
	Returned        int       `json:"returned"`
	LatencyMicros   int64     `json:"latency_us"`
	CacheHit        bool      `json:"cache_hit"`
	RequestID       string    `json:"request_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Key is the Kafka partition key; events for the same mode share a
// partition.
func (e SearchEvent) Key() string {
	return e.Mode
}

// Tracker accepts search events. Implementations must not block.
type Tracker interface {
	Track(event SearchEvent)
}

type multiTracker []Tracker

func (m multiTracker) Track(event SearchEvent) {
	for _, t := range m {
		t.Track(event)
	}
}

// Multi fans an event out to every non-nil tracker.
func Multi(trackers ...Tracker) Tracker {
	var m multiTracker
	for _, t := range trackers {
		if t != nil {
			m = append(m, t)
		}
	}
	return m
}
