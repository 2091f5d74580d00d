// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Council       CouncilConfig       `mapstructure:"council"`
	Search        SearchConfig        `mapstructure:"search"`
	Synthesis     SynthesisConfig     `mapstructure:"synthesis"`
	Health        HealthConfig        `mapstructure:"health"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int      `mapstructure:"write_timeout"` // milliseconds
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// --- Council ---

// MemberConfig is the static description of one council member.
type MemberConfig struct {
	ID          string  `mapstructure:"id"`
	Name        string  `mapstructure:"name"`
	Endpoint    string  `mapstructure:"endpoint"`
	System      string  `mapstructure:"system"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Model       string  `mapstructure:"model"`
}

type CouncilConfig struct {
	Members     []MemberConfig `mapstructure:"members"`
	Synthesizer string         `mapstructure:"synthesizer"`
	CallTimeout int            `mapstructure:"call_timeout"` // milliseconds, per member call
}

// --- Search ---

type SearchConfig struct {
	Provider      string              `mapstructure:"provider"` // searxng | elasticsearch
	Endpoint      string              `mapstructure:"endpoint"`
	Timeout       int                 `mapstructure:"timeout"` // milliseconds
	MaxResults    int                 `mapstructure:"max_results"`
	Shared        bool                `mapstructure:"shared"`
	Cache         SearchCacheConfig   `mapstructure:"cache"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type SearchCacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTL     int  `mapstructure:"ttl"` // milliseconds
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// --- Synthesis / Health ---

type SynthesisConfig struct {
	Temperature float64 `mapstructure:"temperature"`
}

type HealthConfig struct {
	Timeout int `mapstructure:"timeout"` // milliseconds
}

// --- Infrastructure ---

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig holds settings for the outage notifier.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"` // host:port, OTLP/HTTP
	OTLPInsecure   bool    `mapstructure:"otlp_insecure"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
