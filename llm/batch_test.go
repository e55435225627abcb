package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectly/queryagent/search"
)

const pass1Payload = `{"score": 70, "breakdown": {"expectedYield": 28, "personaRelevance": 25, "queryUniqueness": 17}, "reasoning": "fine"}`
const pass2Payload = `{"score": 60, "relevantCount": 2, "breakdown": {"resultRelevance": 30, "qualitySignal": 18, "diversity": 12}, "reasoning": "fine", "topMatches": [1]}`

// concurrencyProbe counts in-flight calls and records the high-water mark.
type concurrencyProbe struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (p *concurrencyProbe) enter() {
	cur := p.current.Add(1)
	for {
		peak := p.peak.Load()
		if cur <= peak || p.peak.CompareAndSwap(peak, cur) {
			return
		}
	}
}

func (p *concurrencyProbe) exit() {
	p.current.Add(-1)
}

func TestBatchScorePass1RespectsConcurrencyLimit(t *testing.T) {
	probe := &concurrencyProbe{}
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		probe.enter()
		defer probe.exit()
		time.Sleep(10 * time.Millisecond)
		return &Completion{Content: pass1Payload}, nil
	})

	c := newTestClient(t, backend)
	queries := []string{"q1", "q2", "q3", "q4", "q5", "q6"}

	scores, err := c.BatchScorePass1(context.Background(), queries, testPersona(), "master", 2)
	require.NoError(t, err)
	assert.Len(t, scores, 6)
	assert.LessOrEqual(t, probe.peak.Load(), int32(2))
}

func TestBatchScorePass1PartialFailure(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		// the prompt embeds the query; fail one of them
		if strings.Contains(prompt, "\nq2\n") {
			return &Completion{Content: "garbage"}, nil
		}
		return &Completion{Content: pass1Payload}, nil
	})

	c := newTestClient(t, backend)
	scores, err := c.BatchScorePass1(context.Background(), []string{"q1", "q2", "q3"}, testPersona(), "", 2)

	var berr *BatchError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "1 errors during batch scoring", berr.Error())
	assert.Len(t, berr.Failures, 1)
	assert.Contains(t, berr.Failures, "q2")

	// siblings still scored
	assert.Len(t, scores, 2)
	assert.Contains(t, scores, "q1")
	assert.Contains(t, scores, "q3")
}

func TestBatchScorePass2(t *testing.T) {
	probe := &concurrencyProbe{}
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		probe.enter()
		defer probe.exit()
		time.Sleep(5 * time.Millisecond)
		return &Completion{Content: pass2Payload}, nil
	})

	c := newTestClient(t, backend)

	items := make([]Pass2Item, 5)
	for i := range items {
		items[i] = Pass2Item{
			Query:  fmt.Sprintf("q%d", i+1),
			Sample: []search.Result{{URL: "u", Title: "T"}, {URL: "v", Title: "V"}},
		}
	}

	scores, err := c.BatchScorePass2(context.Background(), items, testPersona(), 3)
	require.NoError(t, err)
	assert.Len(t, scores, 5)
	assert.LessOrEqual(t, probe.peak.Load(), int32(3))
	assert.Equal(t, 2, scores["q1"].RelevantCount)
}

func TestBatchScorePass1Empty(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		t.Fatal("backend should not be called for an empty batch")
		return nil, nil
	})

	c := newTestClient(t, backend)
	scores, err := c.BatchScorePass1(context.Background(), nil, testPersona(), "", 2)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestBatchScorePass1DefaultLimit(t *testing.T) {
	probe := &concurrencyProbe{}
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		probe.enter()
		defer probe.exit()
		time.Sleep(5 * time.Millisecond)
		return &Completion{Content: pass1Payload}, nil
	})

	c := newTestClient(t, backend)
	queries := []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8"}

	scores, err := c.BatchScorePass1(context.Background(), queries, testPersona(), "", 0)
	require.NoError(t, err)
	assert.Len(t, scores, 8)
	assert.LessOrEqual(t, probe.peak.Load(), int32(DefaultConcurrency))
}
