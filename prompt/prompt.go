// Package prompt renders the prompts used by the query pipeline: candidate
// generation, pre-execution scoring (pass 1), and sampled-result scoring
// (pass 2). Every builder is a pure function of its inputs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/prospectly/queryagent/search"
)

// GenerationOptions tunes the query-generation prompt.
type GenerationOptions struct {
	// MaxQueries is the number of queries the model is asked for. Defaults
	// to 10 when zero.
	MaxQueries int
}

// DefaultMaxQueries is used when GenerationOptions.MaxQueries is unset.
const DefaultMaxQueries = 10

// QueryGeneration builds the prompt asking the model for candidate search
// queries. When previous queries are provided, their scores are embedded so
// the model can bias toward patterns that performed well.
func QueryGeneration(persona *search.Persona, seedQuery string, previous []search.QueryContext, opts *GenerationOptions) string {
	maxQueries := DefaultMaxQueries
	if opts != nil && opts.MaxQueries > 0 {
		maxQueries = opts.MaxQueries
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert at crafting LinkedIn search queries for prospecting.\n\n")
	fmt.Fprintf(&b, "Generate %d new search queries targeting the audience below.\n\n", maxQueries)

	b.WriteString("Target audience:\n")
	writePersona(&b, persona)

	fmt.Fprintf(&b, "\nSeed query:\n%s\n", seedQuery)

	if len(previous) > 0 {
		b.WriteString("\nTop performing queries from previous rounds (composite / pass 1 / pass 2):\n")
		for _, qc := range previous {
			fmt.Fprintf(&b, "- %q: %s / %s / %s\n",
				qc.Query,
				formatScore(qc.CompositeScore),
				formatScore(qc.Pass1Score),
				formatScore(qc.Pass2Score))
		}
		b.WriteString("Prefer variations on the highest-scoring patterns and avoid repeating queries verbatim.\n")
	}

	fmt.Fprintf(&b, `
Return exactly %d queries as a JSON array and nothing else:
[
  {"query": "the search query string", "reasoning": "why this query should find the target audience"}
]
`, maxQueries)

	return b.String()
}

// Pass1Scoring builds the pre-execution scoring prompt for a single query.
// masterPrompt is free-text campaign context supplied by the operator.
func Pass1Scoring(query string, persona *search.Persona, masterPrompt string) string {
	var b strings.Builder

	b.WriteString("You are scoring a LinkedIn search query before it is executed.\n\n")

	fmt.Fprintf(&b, "Query:\n%s\n\n", query)

	b.WriteString("Target audience:\n")
	writePersona(&b, persona)

	if masterPrompt != "" {
		fmt.Fprintf(&b, "\nCampaign context:\n%s\n", masterPrompt)
	}

	b.WriteString(`
Score the query on three dimensions:
1. Expected yield (0-40): will this query return a meaningful number of results? Consider operator correctness, specificity, and whether the terms are ones people actually put in their profiles.
2. Persona relevance (0-35): how precisely do the query terms match the target titles, seniority, and industries?
3. Query uniqueness (0-25): does the query explore an angle unlikely to duplicate obvious baseline queries?

Score conservatively; an unremarkable query should land in the middle of each range, not the top.

Return a single JSON object and nothing else:
{"score": 0-100, "breakdown": {"expectedYield": 0-40, "personaRelevance": 0-35, "queryUniqueness": 0-25}, "reasoning": "one short paragraph"}
`)

	return b.String()
}

// Pass2Scoring builds the post-execution scoring prompt, grading a query by a
// sample of the results it actually returned.
func Pass2Scoring(query string, sample []search.Result, persona *search.Persona) string {
	var b strings.Builder

	b.WriteString("You are validating a LinkedIn search query by inspecting a sample of its results.\n\n")

	fmt.Fprintf(&b, "Query:\n%s\n\n", query)

	b.WriteString("Target audience:\n")
	writePersona(&b, persona)

	fmt.Fprintf(&b, "\nSample of %d results:\n", len(sample))
	for i, r := range sample {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, r.Type, r.Title)
		if r.Description != "" {
			fmt.Fprintf(&b, "   %s\n", r.Description)
		}
	}

	b.WriteString(`
Score the results on three dimensions:
1. Result relevance (0-50): how many of the sampled results plausibly belong to the target audience?
2. Quality signal (0-30): are these substantive profiles/pages rather than spam, listicles, or dead links?
3. Diversity (0-20): do the results span different people and companies rather than near-duplicates?

Return a single JSON object and nothing else:
{"score": 0-100, "relevantCount": <integer>, "breakdown": {"resultRelevance": 0-50, "qualitySignal": 0-30, "diversity": 0-20}, "reasoning": "one short paragraph", "topMatches": [1-based indices of the best-matching sampled results]}
`)

	return b.String()
}

func writePersona(b *strings.Builder, persona *search.Persona) {
	fmt.Fprintf(b, "- Job titles: %s\n", strings.Join(persona.JobTitles, ", "))
	fmt.Fprintf(b, "- Seniority: %s\n", strings.Join(persona.SeniorityLevels, ", "))
	fmt.Fprintf(b, "- Industries: %s\n", strings.Join(persona.Industries, ", "))
	if len(persona.CompanyTypes) > 0 {
		fmt.Fprintf(b, "- Company types: %s\n", strings.Join(persona.CompanyTypes, ", "))
	}
	if len(persona.Locations) > 0 {
		fmt.Fprintf(b, "- Locations: %s\n", strings.Join(persona.Locations, ", "))
	}
	if persona.Keywords != "" {
		fmt.Fprintf(b, "- Keywords: %s\n", persona.Keywords)
	}
}

// formatScore renders a score to two decimals, or "N/A" when absent.
func formatScore(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *score)
}
