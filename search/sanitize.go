package search

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// CleanDescription strips markup from a result description. Search snippets
// routinely carry highlight tags and entities that would leak into scoring
// prompts.
func CleanDescription(s string) string {
	cleaned := stripPolicy.Sanitize(s)
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// CleanResults returns a copy of results with sanitized descriptions.
func CleanResults(results []Result) []Result {
	cleaned := make([]Result, len(results))
	for i, r := range results {
		r.Description = CleanDescription(r.Description)
		cleaned[i] = r
	}
	return cleaned
}
