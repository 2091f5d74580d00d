// internal/council/search-augmenter/config.go
package searchaugmenter

import "time"

const MaxResultsLimit = 5

type Config struct {
	Provider   string
	Endpoint   string
	Index      string
	Timeout    time.Duration
	MaxResults int
	CacheTTL   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Provider:   ProviderSearxng,
		Endpoint:   "http://localhost:8888",
		Timeout:    10 * time.Second,
		MaxResults: MaxResultsLimit,
		CacheTTL:   time.Minute,
	}
}

func (c *Config) maxResults() int {
	if c.MaxResults <= 0 || c.MaxResults > MaxResultsLimit {
		return MaxResultsLimit
	}
	return c.MaxResults
}
