// internal/council/search-augmenter/searxng.go
package searchaugmenter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	commonhttp "ai-council/internal/common/http"
	"ai-council/internal/models"
)

// SearxngSearcher queries a SearxNG-compatible /search?format=json endpoint.
type SearxngSearcher struct {
	endpoint string
	client   *commonhttp.Client
}

func NewSearxngSearcher(endpoint string, client *commonhttp.Client) *SearxngSearcher {
	return &SearxngSearcher{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
	}
}

func (s *SearxngSearcher) Name() string { return ProviderSearxng }

func (s *SearxngSearcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	searchURL, err := s.buildSearchURL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("search API returned %d", resp.StatusCode)
	}

	var apiResponse searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(apiResponse.Results))
	for _, r := range apiResponse.Results {
		results = append(results, models.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}

func (s *SearxngSearcher) buildSearchURL(query string) (string, error) {
	baseURL, err := url.Parse(s.endpoint + "/search")
	if err != nil {
		return "", fmt.Errorf("invalid search endpoint: %w", err)
	}
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	baseURL.RawQuery = params.Encode()
	return baseURL.String(), nil
}
