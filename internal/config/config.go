package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Webhook        WebhookConfig
	RateLimit      RateLimitConfig
	CircuitBreaker CircuitBreakerConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	MongoDB MongoDBConfig
	Redis   RedisConfig
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	EventsTopic string   `mapstructure:"events_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WebhookConfig tunes the ingestion pipeline. SeenTTLSeconds bounds the Redis
// fast-path duplicate cache; OnCacheError picks between "allow" (fall through
// to the store, which owns correctness) and "deny".
type WebhookConfig struct {
	VerifyToken    string `mapstructure:"verify_token"`
	SeenTTLSeconds int    `mapstructure:"seen_ttl_seconds"`
	OnCacheError   string `mapstructure:"on_cache_error"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
