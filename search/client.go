package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient calls a remote search service over HTTP. The service accepts a
// POST with the query and locale/paging options and returns typed results
// plus call metadata.
type HTTPClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// HTTPClientOptions configures an HTTPClient.
type HTTPClientOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration // default 60s
}

// NewHTTPClient creates a search client. The API key is required.
func NewHTTPClient(opts HTTPClientOptions) (*HTTPClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("search api key not set")
	}
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("search base url not set")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &HTTPClient{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type searchRequest struct {
	Query      string `json:"query"`
	Country    string `json:"country,omitempty"`
	Language   string `json:"language,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Execute runs one query against the search service.
func (c *HTTPClient) Execute(ctx context.Context, query string, opts Options) (*Response, error) {
	reqBody := searchRequest{
		Query:      query,
		Country:    opts.Country,
		Language:   opts.Language,
		MaxResults: opts.MaxResults,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api status: %d", resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &result, nil
}

var _ Backend = (*HTTPClient)(nil)
