package aggregate

import (
	"sync"

	"github.com/prospectly/queryagent/search"
)

// Aggregator is a concurrency-safe accumulator over Merge, used by the
// pipeline as results stream in from executed queries.
type Aggregator struct {
	mu      sync.Mutex
	results []Result
	meta    Metadata
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add merges one query's response into the aggregate.
func (a *Aggregator) Add(resp *search.Response, query string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results, a.meta = Merge(a.results, a.meta, resp.Results, resp.Metadata, query)
}

// Results returns a snapshot of the deduplicated results.
func (a *Aggregator) Results() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Result, len(a.results))
	copy(out, a.results)
	return out
}

// Metadata returns a snapshot of the running totals.
func (a *Aggregator) Metadata() Metadata {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meta
}

// UniqueCount returns the number of distinct URLs seen so far.
func (a *Aggregator) UniqueCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Reset drops all accumulated results and totals.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = nil
	a.meta = Metadata{}
}
