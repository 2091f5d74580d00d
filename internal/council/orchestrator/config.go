// internal/council/orchestrator/config.go
package orchestrator

import "time"

type Config struct {
	// SharedSearch runs one augmentation per fan-out request and gives every
	// member the same snippets. When false each member searches on its own.
	SharedSearch bool

	// NotifyTimeout bounds the outage notification sent on AllFailed.
	NotifyTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		SharedSearch:  false,
		NotifyTimeout: 5 * time.Second,
	}
}
