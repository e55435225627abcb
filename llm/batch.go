package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/prospectly/queryagent/search"
)

// BatchError summarizes per-item failures inside a batch. The batch still
// returns every score that succeeded.
type BatchError struct {
	Failures map[string]error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d errors during batch scoring", len(e.Failures))
}

// Pass2Item pairs a query with the result sample to score it against.
type Pass2Item struct {
	Query  string
	Sample []search.Result
}

// BatchScorePass1 scores queries concurrently, with at most limit requests
// in flight at any instant. Items are admitted in submission order. A
// per-item failure does not abort its siblings; partial results come back
// alongside a *BatchError.
func (c *Client) BatchScorePass1(ctx context.Context, queries []string, persona *search.Persona, masterPrompt string, limit int) (map[string]*ScorePass1, error) {
	scores := make(map[string]*ScorePass1, len(queries))
	failures := make(map[string]error)

	var mu sync.Mutex
	runBatch(ctx, queries, limit, func(ctx context.Context, query string) {
		score, err := c.ScoreQueryPass1(ctx, query, persona, masterPrompt)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures[query] = err
			return
		}
		scores[query] = score
	})

	if len(failures) > 0 {
		return scores, &BatchError{Failures: failures}
	}
	return scores, nil
}

// BatchScorePass2 scores query/sample pairs concurrently with the same
// admission and failure semantics as BatchScorePass1.
func (c *Client) BatchScorePass2(ctx context.Context, items []Pass2Item, persona *search.Persona, limit int) (map[string]*ScorePass2, error) {
	scores := make(map[string]*ScorePass2, len(items))
	failures := make(map[string]error)

	var mu sync.Mutex
	runBatch(ctx, items, limit, func(ctx context.Context, item Pass2Item) {
		score, err := c.ScoreResultsPass2(ctx, item.Query, item.Sample, persona)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures[item.Query] = err
			return
		}
		scores[item.Query] = score
	})

	if len(failures) > 0 {
		return scores, &BatchError{Failures: failures}
	}
	return scores, nil
}

// runBatch fans items out to limit workers pulling from a FIFO channel, so
// admission order matches submission order and at most limit items run at
// once.
func runBatch[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T)) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if limit > len(items) {
		limit = len(items)
	}

	jobs := make(chan T)
	var wg sync.WaitGroup

	for range limit {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				fn(ctx, item)
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
}
