package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectly/queryagent/search"
)

func TestMergeDeduplicatesByURL(t *testing.T) {
	batch1 := []search.Result{
		{URL: "https://x/a", Title: "A from q1", Type: search.ResultTypeProfile},
		{URL: "https://x/b", Title: "B", Type: search.ResultTypeCompany},
	}
	batch2 := []search.Result{
		{URL: "https://x/a", Title: "A from q2 (ignored)", Type: search.ResultTypeProfile},
		{URL: "https://x/c", Title: "C", Type: search.ResultTypePost},
	}

	results, meta := Merge(nil, Metadata{}, batch1, search.Metadata{PagesFetched: 1, TimeTakenSeconds: 2}, "q1")
	results, meta = Merge(results, meta, batch2, search.Metadata{PagesFetched: 3, TimeTakenSeconds: 1.5}, "q2")

	require.Len(t, results, 3)

	a := results[0]
	assert.Equal(t, "https://x/a", a.URL)
	assert.Equal(t, []string{"q1", "q2"}, a.SourceQueries)
	// descriptive fields come from the first occurrence
	assert.Equal(t, "A from q1", a.Title)

	assert.Equal(t, []string{"q1"}, results[1].SourceQueries)
	assert.Equal(t, []string{"q2"}, results[2].SourceQueries)

	assert.Equal(t, 3, meta.TotalUniqueResults)
	assert.Equal(t, 4, meta.TotalRawResults)
	assert.Equal(t, 2, meta.QueryCount)
	assert.Equal(t, []string{"q1", "q2"}, meta.Queries)
	assert.Equal(t, 4, meta.TotalPagesFetched)
	assert.InDelta(t, 3.5, meta.TotalTimeSeconds, 1e-9)
}

func TestMergeUniqueNeverExceedsRaw(t *testing.T) {
	var results []Result
	var meta Metadata

	batches := [][]search.Result{
		{{URL: "u1"}, {URL: "u2"}},
		{{URL: "u1"}, {URL: "u3"}},
		{{URL: "u1"}},
	}

	raw := 0
	for i, batch := range batches {
		results, meta = Merge(results, meta, batch, search.Metadata{}, string(rune('a'+i)))
		raw += len(batch)
		assert.LessOrEqual(t, meta.TotalUniqueResults, meta.TotalRawResults)
	}
	assert.Equal(t, raw, meta.TotalRawResults)
	assert.Equal(t, 3, meta.TotalUniqueResults)
}

func TestMergeSameQueryTwiceNoDuplicateAttribution(t *testing.T) {
	batch := []search.Result{{URL: "u1"}}

	results, meta := Merge(nil, Metadata{}, batch, search.Metadata{}, "q1")
	results, meta = Merge(results, meta, batch, search.Metadata{}, "q1")

	require.Len(t, results, 1)
	assert.Equal(t, []string{"q1"}, results[0].SourceQueries)
	assert.Equal(t, 1, meta.QueryCount)
	assert.Equal(t, 2, meta.TotalRawResults)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	existing, meta := Replace([]search.Result{{URL: "u1"}}, search.Metadata{}, "q1")

	before := append([]string(nil), existing[0].SourceQueries...)
	merged, _ := Merge(existing, meta, []search.Result{{URL: "u1"}}, search.Metadata{}, "q2")

	assert.Equal(t, before, existing[0].SourceQueries)
	assert.Equal(t, []string{"q1", "q2"}, merged[0].SourceQueries)
}

func TestMergeSetsFirstSeenAt(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	orig := now
	now = func() time.Time { return fixed }
	defer func() { now = orig }()

	results, _ := Replace([]search.Result{{URL: "u1"}}, search.Metadata{}, "q1")
	assert.Equal(t, fixed, results[0].FirstSeenAt)
}

func TestReplaceCountsOneQuery(t *testing.T) {
	results, meta := Replace([]search.Result{{URL: "u1"}, {URL: "u2"}}, search.Metadata{PagesFetched: 2, TimeTakenSeconds: 0.4}, "fresh")

	assert.Len(t, results, 2)
	assert.Equal(t, 1, meta.QueryCount)
	assert.Equal(t, []string{"fresh"}, meta.Queries)
	assert.Equal(t, 2, meta.TotalUniqueResults)
	assert.Equal(t, 2, meta.TotalRawResults)
}

func TestAggregator(t *testing.T) {
	agg := NewAggregator()

	agg.Add(&search.Response{
		Results:  []search.Result{{URL: "u1"}, {URL: "u2"}},
		Metadata: search.Metadata{PagesFetched: 1, TimeTakenSeconds: 1},
	}, "q1")
	agg.Add(&search.Response{
		Results:  []search.Result{{URL: "u2"}, {URL: "u3"}},
		Metadata: search.Metadata{PagesFetched: 1, TimeTakenSeconds: 1},
	}, "q2")

	assert.Equal(t, 3, agg.UniqueCount())

	meta := agg.Metadata()
	assert.Equal(t, 4, meta.TotalRawResults)
	assert.Equal(t, 2, meta.QueryCount)

	results := agg.Results()
	require.Len(t, results, 3)
	assert.Equal(t, []string{"q1", "q2"}, results[1].SourceQueries)

	agg.Reset()
	assert.Equal(t, 0, agg.UniqueCount())
	assert.Equal(t, Metadata{}, agg.Metadata())
}
