package pipeline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FunnelOptions defines configuration for funnel rendering.
type FunnelOptions struct {
	// BarWidth is the width of the widest bar in cells.
	BarWidth int
	// Plain disables colors and borders.
	Plain bool
}

// FunnelRenderer renders a session's funnel statistics as a terminal
// diagram: one bar per funnel step, scaled to the generated count.
type FunnelRenderer struct {
	opts FunnelOptions

	title    lipgloss.Style
	label    lipgloss.Style
	bar      lipgloss.Style
	rejected lipgloss.Style
	summary  lipgloss.Style
}

// NewFunnelRenderer creates a renderer with the given options.
func NewFunnelRenderer(opts FunnelOptions) *FunnelRenderer {
	if opts.BarWidth <= 0 {
		opts.BarWidth = 40
	}

	r := &FunnelRenderer{opts: opts}
	if !opts.Plain {
		r.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
		r.label = lipgloss.NewStyle().Width(18)
		r.bar = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
		r.rejected = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
		r.summary = lipgloss.NewStyle().Faint(true)
	} else {
		r.label = lipgloss.NewStyle().Width(18)
	}
	return r
}

// RenderFunnel draws the cumulative funnel of a session.
func (r *FunnelRenderer) RenderFunnel(stats Stats) string {
	var sb strings.Builder

	sb.WriteString(r.title.Render(fmt.Sprintf("Query Funnel (%d round(s))", stats.Rounds)))
	sb.WriteString("\n")

	steps := []struct {
		label    string
		count    int
		rejected int
	}{
		{"Generated", stats.Generated, 0},
		{"Pass 1", stats.Pass1Passed, stats.Pass1Rejected},
		{"Pass 2", stats.Pass2Passed, stats.Pass2Rejected},
		{"Executed", stats.Executed, 0},
	}

	for _, step := range steps {
		sb.WriteString(r.renderStep(step.label, step.count, step.rejected, stats.Generated))
		sb.WriteString("\n")
	}

	sb.WriteString(r.summary.Render(fmt.Sprintf("Results: %d raw, %d unique. Tokens used: %d.",
		stats.RawResults, stats.UniqueResults, stats.TokensUsed)))
	sb.WriteString("\n")
	return sb.String()
}

// RenderRound draws a single round's funnel.
func (r *FunnelRenderer) RenderRound(round RoundStats) string {
	var sb strings.Builder

	sb.WriteString(r.title.Render(fmt.Sprintf("Round %d", round.Round)))
	sb.WriteString("\n")
	sb.WriteString(r.renderStep("Generated", round.Generated, 0, round.Generated))
	sb.WriteString("\n")
	sb.WriteString(r.renderStep("Pass 1", round.Pass1Passed, round.Pass1Rejected, round.Generated))
	sb.WriteString("\n")
	sb.WriteString(r.renderStep("Pass 2", round.Pass2Passed, round.Pass2Rejected, round.Generated))
	sb.WriteString("\n")
	sb.WriteString(r.renderStep("Executed", round.Executed, 0, round.Generated))
	sb.WriteString("\n")
	sb.WriteString(r.summary.Render(fmt.Sprintf("Raw results: %d.", round.RawResults)))
	sb.WriteString("\n")
	return sb.String()
}

func (r *FunnelRenderer) renderStep(label string, count, rejected, max int) string {
	width := 0
	if max > 0 {
		width = count * r.opts.BarWidth / max
	}
	if count > 0 && width == 0 {
		width = 1
	}

	line := r.label.Render(label) + " " + r.bar.Render(strings.Repeat("█", width))
	line += fmt.Sprintf(" %d", count)
	if rejected > 0 {
		line += " " + r.rejected.Render(fmt.Sprintf("(-%d)", rejected))
	}
	return line
}
