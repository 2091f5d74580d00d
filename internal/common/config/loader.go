// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml (optional), merges config.<APP_ENVIRONMENT>.yaml
// over it and applies environment overrides. The returned value is read once
// at startup and never re-read.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Scalar keys need a default so AutomaticEnv can see them during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ai-council")
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 15000)
	v.SetDefault("server.write_timeout", 150000)
	v.SetDefault("council.synthesizer", "")
	v.SetDefault("council.call_timeout", 60000)
	v.SetDefault("search.provider", "searxng")
	v.SetDefault("search.endpoint", "http://localhost:8888")
	v.SetDefault("search.timeout", 10000)
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.shared", false)
	v.SetDefault("search.cache.enabled", false)
	v.SetDefault("search.cache.ttl", 60000)
	v.SetDefault("search.elasticsearch.index", "web-pages")
	v.SetDefault("synthesis.temperature", 0.3)
	v.SetDefault("health.timeout", 2000)
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("notifications.sns.enabled", false)
	v.SetDefault("observability.service_name", "ai-council")
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.sample_ratio", 1.0)
	v.SetDefault("observability.otlp_endpoint", "localhost:4318")
	v.SetDefault("observability.otlp_insecure", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// DefaultMembers is the four-persona council used when no members are configured.
func DefaultMembers() []MemberConfig {
	return []MemberConfig{
		{
			ID:          "analyst",
			Name:        "The Analyst (Qwen 2.5 3B)",
			Endpoint:    "http://localhost:8081",
			System:      "You are a logical, data-driven analyst. Focus on facts, statistics, and evidence-based reasoning. Break down problems methodically.",
			Temperature: 0.3,
			MaxTokens:   400,
		},
		{
			ID:          "creative",
			Name:        "The Creative (Llama 3.2 1B)",
			Endpoint:    "http://localhost:8082",
			System:      "You are a creative, innovative thinker. Approach problems from unique angles and suggest unconventional solutions. Be enthusiastic and imaginative.",
			Temperature: 0.9,
			MaxTokens:   400,
		},
		{
			ID:          "critic",
			Name:        "The Critic (Phi-3.5 Mini)",
			Endpoint:    "http://localhost:8083",
			System:      "You are a skeptical, critical thinker. Question assumptions, identify flaws, and play devil's advocate. Help identify risks and weaknesses.",
			Temperature: 0.4,
			MaxTokens:   400,
		},
		{
			ID:          "pragmatist",
			Name:        "The Pragmatist (Gemma 2 2B)",
			Endpoint:    "http://localhost:8084",
			System:      "You are a practical, solution-focused advisor. Emphasize actionable steps and real-world feasibility. Balance idealism with pragmatism.",
			Temperature: 0.5,
			MaxTokens:   400,
		},
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if len(cfg.Council.Members) == 0 {
		cfg.Council.Members = DefaultMembers()
	}
	for i := range cfg.Council.Members {
		m := &cfg.Council.Members[i]
		if m.Name == "" {
			m.Name = m.ID
		}
		if m.MaxTokens == 0 {
			m.MaxTokens = 400
		}
	}
	if cfg.Council.Synthesizer == "" && len(cfg.Council.Members) > 0 {
		cfg.Council.Synthesizer = cfg.Council.Members[0].ID
	}

	if cfg.Search.MaxResults <= 0 || cfg.Search.MaxResults > 5 {
		cfg.Search.MaxResults = 5
	}
	if len(cfg.Search.Elasticsearch.Addresses) == 0 && cfg.Search.Provider == "elasticsearch" {
		cfg.Search.Elasticsearch.Addresses = []string{cfg.Search.Endpoint}
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = []string{"*"}
	}
}

// MemberEndpointEnv returns the environment variable that overrides a member's
// endpoint, e.g. "analyst" -> ANALYST_ENDPOINT.
func MemberEndpointEnv(memberID string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return strings.ToUpper(r.Replace(memberID)) + "_ENDPOINT"
}

func overrideFromEnv(cfg *Config) {
	for i := range cfg.Council.Members {
		m := &cfg.Council.Members[i]
		if val := os.Getenv(MemberEndpointEnv(m.ID)); val != "" {
			m.Endpoint = val
		}
	}

	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
}

// validateConfig validates critical configuration fields. Member id
// uniqueness and the synthesizer reference are checked by the registry.
func validateConfig(cfg *Config) error {
	switch cfg.Search.Provider {
	case "searxng", "elasticsearch":
	default:
		return fmt.Errorf("search.provider must be searxng or elasticsearch, got %q", cfg.Search.Provider)
	}
	if cfg.Search.Endpoint == "" && cfg.Search.Provider == "searxng" {
		return fmt.Errorf("search.endpoint is required")
	}
	if cfg.Search.Cache.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when search.cache.enabled")
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	for i, m := range cfg.Council.Members {
		if m.Endpoint == "" {
			return fmt.Errorf("council.members[%d].endpoint is required", i)
		}
	}
	if cfg.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
