// Package aggregate deduplicates search results across queries and rounds.
// Identity is the result URL, case-sensitive and exact. The first occurrence
// of a URL owns its descriptive fields; later occurrences only contribute
// source-query attribution.
package aggregate

import (
	"slices"
	"time"

	"github.com/prospectly/queryagent/search"
)

// Result is a search result annotated with every query that produced it and
// when it was first seen.
type Result struct {
	search.Result
	SourceQueries []string  `json:"sourceQueries"`
	FirstSeenAt   time.Time `json:"firstSeenAt"`
}

// Metadata carries the running totals across merges.
type Metadata struct {
	TotalUniqueResults int      `json:"totalUniqueResults"`
	TotalRawResults    int      `json:"totalRawResults"`
	QueryCount         int      `json:"queryCount"`
	Queries            []string `json:"queries"`
	TotalTimeSeconds   float64  `json:"totalTimeSeconds"`
	TotalPagesFetched  int      `json:"totalPagesFetched"`
}

// overridable in tests
var now = time.Now

// Merge folds one query's results into the existing aggregate. A new URL is
// appended with the query as its first source; a known URL only gains the
// query in its SourceQueries (no reordering, no field overwrites). Inputs
// are not mutated.
func Merge(existing []Result, meta Metadata, incoming []search.Result, callMeta search.Metadata, query string) ([]Result, Metadata) {
	merged := make([]Result, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, r := range merged {
		index[r.URL] = i
	}

	seenAt := now()
	for _, r := range incoming {
		if i, ok := index[r.URL]; ok {
			if !slices.Contains(merged[i].SourceQueries, query) {
				merged[i].SourceQueries = append(slices.Clone(merged[i].SourceQueries), query)
			}
			continue
		}

		index[r.URL] = len(merged)
		merged = append(merged, Result{
			Result:        r,
			SourceQueries: []string{query},
			FirstSeenAt:   seenAt,
		})
	}

	meta.TotalUniqueResults = len(merged)
	meta.TotalRawResults += len(incoming)
	if !slices.Contains(meta.Queries, query) {
		meta.Queries = append(slices.Clone(meta.Queries), query)
		meta.QueryCount = len(meta.Queries)
	}
	meta.TotalTimeSeconds += callMeta.TimeTakenSeconds
	meta.TotalPagesFetched += callMeta.PagesFetched

	return merged, meta
}

// Replace builds a fresh aggregate from a single search, discarding any
// prior state. The resulting metadata counts exactly one query.
func Replace(incoming []search.Result, callMeta search.Metadata, query string) ([]Result, Metadata) {
	return Merge(nil, Metadata{}, incoming, callMeta, query)
}
