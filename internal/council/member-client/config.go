// internal/council/member-client/config.go
package memberclient

import "time"

type Config struct {
	// CallTimeout bounds a single completion call. Zero means no deadline
	// beyond the caller's context.
	CallTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		CallTimeout: 60 * time.Second,
	}
}
