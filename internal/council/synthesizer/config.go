// internal/council/synthesizer/config.go
package synthesizer

type Config struct {
	// Temperature replaces the synthesizer member's persona temperature for
	// the consensus call.
	Temperature float64
}

func LoadConfig() *Config {
	return &Config{
		Temperature: 0.3,
	}
}
