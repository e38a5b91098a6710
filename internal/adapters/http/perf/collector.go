// Package perf keeps a bounded window of request and query timings in memory.
package perf

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow is the number of samples retained when NewCollector gets size <= 0.
const DefaultWindow = 4096

// Kind distinguishes HTTP requests from SQL statements.
type Kind uint8

const (
	KindRequest Kind = iota
	KindQuery
)

// Sample is one timed operation.
type Sample struct {
	Kind    Kind
	Label   string // "METHOD /path" for requests, the SQLDB method for queries
	Status  int    // HTTP status; 0 for queries
	Elapsed time.Duration
	At      time.Time
}

// Collector is a fixed-size ring of samples. Older samples are overwritten.
type Collector struct {
	mu      sync.Mutex
	samples []Sample
	next    int
	total   atomic.Int64
}

// NewCollector returns a collector retaining the last size samples.
// PRE: none (size <= 0 selects DefaultWindow)
// POST: Collector is ready for concurrent Record calls
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Collector{samples: make([]Sample, size)}
}

// Record stores s, evicting the oldest sample once the window is full.
func (c *Collector) Record(s Sample) {
	c.mu.Lock()
	c.samples[c.next] = s
	c.next = (c.next + 1) % len(c.samples)
	c.mu.Unlock()
	c.total.Add(1)
}

// Total returns the number of samples ever recorded.
func (c *Collector) Total() int64 {
	return c.total.Load()
}

// LabelStat aggregates samples sharing a label.
type LabelStat struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	AvgMs  float64 `json:"avg_ms"`
	MaxMs  float64 `json:"max_ms"`
	Errors int     `json:"errors,omitempty"` // requests answered with status >= 500
}

// Report is the read-side view of the window.
type Report struct {
	Recorded       int64       `json:"recorded"`
	RequestP50Ms   float64     `json:"request_p50_ms"`
	RequestP95Ms   float64     `json:"request_p95_ms"`
	RequestP99Ms   float64     `json:"request_p99_ms"`
	SlowestRoutes  []LabelStat `json:"slowest_routes"`
	SlowestQueries []LabelStat `json:"slowest_queries"`
}

// Report aggregates samples taken at or after since, keeping the topN slowest
// labels of each kind by average latency.
// PRE: topN > 0
// POST: Slices are sorted by AvgMs descending, ties broken by label
func (c *Collector) Report(since time.Time, topN int) Report {
	c.mu.Lock()
	window := slices.Clone(c.samples)
	c.mu.Unlock()

	var latencies []float64
	routes := map[string]*LabelStat{}
	queries := map[string]*LabelStat{}
	for _, s := range window {
		if s.At.IsZero() || s.At.Before(since) {
			continue
		}
		ms := float64(s.Elapsed.Microseconds()) / 1000.0
		bucket := queries
		if s.Kind == KindRequest {
			bucket = routes
			latencies = append(latencies, ms)
		}
		st, ok := bucket[s.Label]
		if !ok {
			st = &LabelStat{Label: s.Label}
			bucket[s.Label] = st
		}
		st.Count++
		st.AvgMs += ms // summed here, divided in rank
		st.MaxMs = max(st.MaxMs, ms)
		if s.Status >= 500 {
			st.Errors++
		}
	}

	r := Report{
		Recorded:       c.Total(),
		SlowestRoutes:  rank(routes, topN),
		SlowestQueries: rank(queries, topN),
	}
	if len(latencies) > 0 {
		slices.Sort(latencies)
		r.RequestP50Ms = quantile(latencies, 0.50)
		r.RequestP95Ms = quantile(latencies, 0.95)
		r.RequestP99Ms = quantile(latencies, 0.99)
	}
	return r
}

// quantile interpolates linearly between the closest ranks of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func rank(stats map[string]*LabelStat, n int) []LabelStat {
	out := make([]LabelStat, 0, len(stats))
	for _, st := range stats {
		st.AvgMs /= float64(st.Count)
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b LabelStat) int {
		if a.AvgMs != b.AvgMs {
			if a.AvgMs > b.AvgMs {
				return -1
			}
			return 1
		}
		if a.Label < b.Label {
			return -1
		}
		if a.Label > b.Label {
			return 1
		}
		return 0
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
