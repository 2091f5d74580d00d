// internal/council/search-augmenter/service.go
package searchaugmenter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	commonerrors "ai-council/internal/common/errors"
	"ai-council/internal/common/metrics"
	"ai-council/internal/models"
)

var (
	ErrSearchTimeout = errors.New("WEB_SEARCH_TIMEOUT")
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Augmenter fetches web context for a query. It never fails: any problem
// with the collaborator yields an empty result set.
type Augmenter struct {
	config   *Config
	searcher Searcher
	cache    Cache
	logger   Logger
}

// NewAugmenter builds an Augmenter. cache may be nil.
func NewAugmenter(config *Config, searcher Searcher, cache Cache, log Logger) *Augmenter {
	return &Augmenter{
		config:   config,
		searcher: searcher,
		cache:    cache,
		logger:   log,
	}
}

// Augment returns at most five results in collaborator order.
func (a *Augmenter) Augment(ctx context.Context, query string) []models.SearchResult {
	provider := a.searcher.Name()

	if a.cache != nil {
		if cached, ok := a.cache.Get(ctx, query); ok {
			metrics.SearchRequests.WithLabelValues(provider, "cache_hit").Inc()
			return truncate(cached, a.config.maxResults())
		}
	}

	results, err := a.search(ctx, query)
	if err != nil {
		metrics.SearchRequests.WithLabelValues(provider, "failed").Inc()
		stdErr := commonerrors.NewSearchFailedError(err)
		a.logger.Warn("web search failed, continuing without augmentation", map[string]interface{}{
			"provider":  provider,
			"errorCode": string(stdErr.Code),
			"error":     stdErr.Details,
			"timeout":   errors.Is(err, ErrSearchTimeout),
		})
		return []models.SearchResult{}
	}

	results = truncate(results, a.config.maxResults())
	metrics.SearchRequests.WithLabelValues(provider, "ok").Inc()
	a.logger.Debug("web search completed", map[string]interface{}{
		"provider":    provider,
		"resultCount": len(results),
	})

	if a.cache != nil && len(results) > 0 {
		a.cache.Set(ctx, query, results)
	}
	return results
}

func (a *Augmenter) search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	results, err := a.searcher.Search(ctx, query)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrSearchTimeout, err)
		}
		return nil, err
	}
	return results, nil
}

func truncate(results []models.SearchResult, max int) []models.SearchResult {
	if len(results) > max {
		return results[:max]
	}
	if results == nil {
		return []models.SearchResult{}
	}
	return results
}

// FormatBlock renders results as the bulleted block appended to a persona
// prompt. It returns "" when there is nothing to add.
func FormatBlock(results []models.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, r.Snippet))
	}
	return "\n\nWeb search results:\n" + strings.Join(lines, "\n")
}
