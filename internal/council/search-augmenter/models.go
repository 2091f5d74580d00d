// internal/council/search-augmenter/models.go
package searchaugmenter

import (
	"context"

	"ai-council/internal/models"
)

const (
	ProviderSearxng       = "searxng"
	ProviderElasticsearch = "elasticsearch"
)

// Searcher is the external search collaborator. Results come back in the
// collaborator's ranking order.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Name() string
}

// Cache stores collaborator results for a short time. Implementations must
// treat every failure as a miss.
type Cache interface {
	Get(ctx context.Context, query string) ([]models.SearchResult, bool)
	Set(ctx context.Context, query string, results []models.SearchResult)
}

// searxngResponse is the JSON shape of GET /search?format=json.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// indexedPage is the _source document of the elasticsearch backend.
type indexedPage struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}
