// internal/council/search-augmenter/elasticsearch.go
package searchaugmenter

import (
	"context"
	"encoding/json"

	"ai-council/internal/common/database"
	"ai-council/internal/models"
)

// ElasticsearchSearcher answers queries from a self-hosted page index.
type ElasticsearchSearcher struct {
	es         *database.ElasticsearchClient
	index      string
	maxResults int
}

func NewElasticsearchSearcher(es *database.ElasticsearchClient, index string, maxResults int) *ElasticsearchSearcher {
	if maxResults <= 0 || maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}
	return &ElasticsearchSearcher{es: es, index: index, maxResults: maxResults}
}

func (s *ElasticsearchSearcher) Name() string { return ProviderElasticsearch }

func (s *ElasticsearchSearcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	hits, err := s.es.SearchHits(ctx, s.index, s.buildQuery(query))
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, raw := range hits {
		var page indexedPage
		if err := json.Unmarshal(raw, &page); err != nil {
			continue
		}
		results = append(results, models.SearchResult{
			Title:   page.Title,
			URL:     page.URL,
			Snippet: page.Content,
		})
	}
	return results, nil
}

func (s *ElasticsearchSearcher) buildQuery(query string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content"},
			},
		},
		"_source": []string{"title", "url", "content"},
		"size":    s.maxResults,
	}
}
