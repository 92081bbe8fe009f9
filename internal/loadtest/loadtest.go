// Package loadtest drives concurrent search traffic at a running service and
// summarises latency and status codes.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueries mixes exact hits, typos and misses.
var DefaultQueries = []string{
	"inverted index",
	"edit distance",
	"search engine",
	"serch engnie",
	"levenshtein",
	"levenstein",
	"term frequency",
	"fuzzy matching",
	"document ranking",
	"tokenizer",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	Mode        string
	Limit       int
}

// Report accumulates per-request outcomes; safe for concurrent use.
type Report struct {
	total       atomic.Int64
	success     atomic.Int64
	errors      atomic.Int64
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
	elapsed     time.Duration
}

func newReport() *Report {
	return &Report{
		latencies:   make([]time.Duration, 0, 4096),
		statusCodes: make(map[int]int64),
	}
}

func (r *Report) record(d time.Duration, status int, err error) {
	r.total.Add(1)
	if err != nil {
		r.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		r.success.Add(1)
	} else {
		r.errors.Add(1)
	}
	r.mu.Lock()
	r.latencies = append(r.latencies, d)
	r.statusCodes[status]++
	r.mu.Unlock()
}

func (r *Report) Total() int64   { return r.total.Load() }
func (r *Report) Success() int64 { return r.success.Load() }
func (r *Report) Errors() int64  { return r.errors.Load() }

// StatusCodes returns a copy of the per-status counts.
func (r *Report) StatusCodes() map[int]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]int64, len(r.statusCodes))
	for k, v := range r.statusCodes {
		out[k] = v
	}
	return out
}

// Percentile returns the pct-th latency of completed requests.
func (r *Report) Percentile(pct int) time.Duration {
	sorted := r.sortedLatencies()
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (r *Report) sortedLatencies() []time.Duration {
	r.mu.Lock()
	out := append([]time.Duration(nil), r.latencies...)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Run sends queries round-robin from cfg.Concurrency workers until
// cfg.Duration elapses or ctx ends.
func Run(ctx context.Context, cfg Config, client *http.Client) (*Report, error) {
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultQueries
	}
	if cfg.Limit < 1 {
		cfg.Limit = 10
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	base = base.JoinPath("/api/v1/search")
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Concurrency * 2,
				MaxIdleConnsPerHost: cfg.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	report := newReport()
	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				q := url.Values{}
				q.Set("q", cfg.Queries[next%len(cfg.Queries)])
				q.Set("limit", strconv.Itoa(cfg.Limit))
				if cfg.Mode != "" {
					q.Set("mode", cfg.Mode)
				}
				next++
				target := *base
				target.RawQuery = q.Encode()

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
				if err != nil {
					report.record(0, 0, err)
					return
				}
				t0 := time.Now()
				resp, err := client.Do(req)
				d := time.Since(t0)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					report.record(d, 0, err)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				report.record(d, resp.StatusCode, nil)
			}
		}(w)
	}
	wg.Wait()
	report.elapsed = time.Since(start)
	return report, nil
}

// Print writes a human-readable summary.
func (r *Report) Print(w io.Writer) {
	total, success, errs := r.Total(), r.Success(), r.Errors()
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", errs)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(errs)/float64(total)*100)
		if r.elapsed > 0 {
			fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/r.elapsed.Seconds())
		}
	}

	latencies := r.sortedLatencies()
	if len(latencies) > 0 {
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			diff := float64(l - avg)
			sq += diff * diff
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", r.Percentile(50))
		fmt.Fprintf(w, "P95:    %s\n", r.Percentile(95))
		fmt.Fprintf(w, "P99:    %s\n", r.Percentile(99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
		fmt.Fprintf(w, "StdDev: %s\n", time.Duration(math.Sqrt(sq/float64(len(latencies)))))
	}

	codes := r.StatusCodes()
	keys := make([]int, 0, len(codes))
	for k := range codes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	for _, k := range keys {
		fmt.Fprintf(w, "%d: %d\n", k, codes[k])
	}
}
