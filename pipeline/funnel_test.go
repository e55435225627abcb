package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderFunnel(t *testing.T) {
	r := NewFunnelRenderer(FunnelOptions{Plain: true, BarWidth: 10})
	out := r.RenderFunnel(Stats{
		Rounds:        2,
		Generated:     20,
		Pass1Passed:   12,
		Pass1Rejected: 8,
		Pass2Passed:   7,
		Pass2Rejected: 5,
		Executed:      7,
		RawResults:    140,
		UniqueResults: 93,
		TokensUsed:    45000,
	})

	assert.Contains(t, out, "Query Funnel (2 round(s))")
	assert.Contains(t, out, "Generated")
	assert.Contains(t, out, "20")
	assert.Contains(t, out, "(-8)")
	assert.Contains(t, out, "(-5)")
	assert.Contains(t, out, "140 raw, 93 unique")
	assert.Contains(t, out, "Tokens used: 45000")
}

func TestRenderFunnelZeroCounts(t *testing.T) {
	r := NewFunnelRenderer(FunnelOptions{Plain: true})
	out := r.RenderFunnel(Stats{})
	assert.Contains(t, out, "Generated")
	assert.NotContains(t, out, "█")
}

func TestRenderRound(t *testing.T) {
	r := NewFunnelRenderer(FunnelOptions{Plain: true, BarWidth: 8})
	out := r.RenderRound(RoundStats{
		Round: 1, Generated: 10, Pass1Passed: 6, Pass1Rejected: 4,
		Pass2Passed: 3, Pass2Rejected: 3, Executed: 3, RawResults: 60,
	})

	assert.Contains(t, out, "Round 1")
	assert.Contains(t, out, "Raw results: 60")
}

func TestRenderFunnelTinyCountsStillVisible(t *testing.T) {
	r := NewFunnelRenderer(FunnelOptions{Plain: true, BarWidth: 10})
	out := r.RenderFunnel(Stats{Generated: 100, Pass1Passed: 1, Executed: 1})
	// a nonzero count never renders as an empty bar
	assert.Contains(t, out, "█ 1")
}
