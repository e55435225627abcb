// Package search defines the search-backend contract and the domain types
// shared across the pipeline: personas, query history, and typed results.
package search

import "context"

// ResultType classifies a search result.
type ResultType string

const (
	ResultTypeProfile ResultType = "profile"
	ResultTypeCompany ResultType = "company"
	ResultTypePost    ResultType = "post"
	ResultTypeJob     ResultType = "job"
	ResultTypeOther   ResultType = "other"
)

// Result is a single typed search result.
type Result struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        ResultType `json:"type"`

	// Type-specific fields, populated when the backend knows them.
	AuthorName  string `json:"author_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Followers   int    `json:"followers,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Metadata describes one backend call.
type Metadata struct {
	PagesFetched     int     `json:"pages_fetched"`
	TimeTakenSeconds float64 `json:"time_taken_seconds"`
}

// Response is what a backend returns for one query.
type Response struct {
	Results  []Result `json:"results"`
	Metadata Metadata `json:"metadata"`
}

// Options tunes a single backend call.
type Options struct {
	Country    string `json:"country,omitempty"`
	Language   string `json:"language,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Backend executes a query against the search service.
// Implementations may fail with network or rate-limit errors.
type Backend interface {
	Execute(ctx context.Context, query string, opts Options) (*Response, error)
}
