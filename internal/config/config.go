// Package config loads and validates resolver configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// ResolverConfig tunes page fetching.
type ResolverConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Retries        int    `mapstructure:"retries"`
	BackoffMs      int    `mapstructure:"backoff_ms"`
	UserAgent      string `mapstructure:"user_agent"`
	// MockMode serves canned pages instead of touching the network.
	MockMode bool `mapstructure:"mock_mode"`
	// MockPagesFile replaces the built-in canned pages in mock mode.
	MockPagesFile string `mapstructure:"mock_pages_file"`
	RespectRobots bool   `mapstructure:"respect_robots"`
	// HostRPS caps requests per second to any single host; 0 disables.
	HostRPS   float64 `mapstructure:"host_rps"`
	HostBurst int     `mapstructure:"host_burst"`
}

// RunnerConfig sizes the job worker pool.
type RunnerConfig struct {
	Concurrency     int `mapstructure:"concurrency"`
	QueueDepth      int `mapstructure:"queue_depth"`
	ItemConcurrency int `mapstructure:"item_concurrency"`
}

// PubSubConfig holds metadata for job completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether completion events go to Pub/Sub.
func (c PubSubConfig) Enabled() bool {
	return c.ProjectID != "" && c.TopicName != ""
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from defaults, an optional file, and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Hosting platforms inject a bare PORT.
	if err := v.BindEnv("server.port", "RESOLVER_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("resolver.timeout_seconds", 15)
	v.SetDefault("resolver.retries", 2)
	v.SetDefault("resolver.backoff_ms", 500)
	v.SetDefault("resolver.user_agent", "pubmed-pdf-resolver/0.1 (+https://github.com/JakeFAU/pubmed-pdf-resolver)")
	v.SetDefault("resolver.mock_mode", false)
	v.SetDefault("resolver.mock_pages_file", "")
	v.SetDefault("resolver.respect_robots", false)
	v.SetDefault("resolver.host_rps", 3.0)
	v.SetDefault("resolver.host_burst", 1)
	v.SetDefault("runner.concurrency", 4)
	v.SetDefault("runner.queue_depth", 1024)
	v.SetDefault("runner.item_concurrency", 1)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("server.request_timeout_seconds must be >= 0")
	}
	if c.Resolver.TimeoutSeconds <= 0 {
		return fmt.Errorf("resolver.timeout_seconds must be > 0")
	}
	if c.Resolver.Retries < 0 {
		return fmt.Errorf("resolver.retries must be >= 0")
	}
	if c.Resolver.BackoffMs < 0 {
		return fmt.Errorf("resolver.backoff_ms must be >= 0")
	}
	if c.Resolver.HostRPS < 0 {
		return fmt.Errorf("resolver.host_rps must be >= 0")
	}
	if c.Runner.Concurrency <= 0 {
		return fmt.Errorf("runner.concurrency must be > 0")
	}
	if c.Runner.QueueDepth <= 0 {
		return fmt.Errorf("runner.queue_depth must be > 0")
	}
	if c.Runner.ItemConcurrency <= 0 {
		return fmt.Errorf("runner.item_concurrency must be > 0")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return errors.New("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}
	return nil
}

// FetchTimeout is the per-attempt page fetch budget.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutSeconds) * time.Second
}

// FetchBackoff is the base delay between fetch attempts; zero retries at once.
func (c Config) FetchBackoff() time.Duration {
	return time.Duration(c.Resolver.BackoffMs) * time.Millisecond
}

// RequestTimeout bounds each HTTP request; zero disables the limit.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
