package config

import (
	"fmt"

	"waweb/internal/constants"
)

// ValidateStatic checks the parts of the configuration that cannot be
// defaulted away. Optional subsystems (Redis cache, Kafka broker) are only
// validated when enabled.
func ValidateStatic(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Database.MongoDB.URI == "" {
		return fmt.Errorf("database.mongodb.uri is required")
	}
	if cfg.Database.MongoDB.Database == "" {
		return fmt.Errorf("database.mongodb.database is required")
	}

	if cfg.Broker.Type != "" && cfg.Broker.Type != "kafka" {
		return fmt.Errorf("broker.type must be empty or \"kafka\", got %q", cfg.Broker.Type)
	}
	if cfg.Broker.Type == "kafka" && len(cfg.Broker.Kafka.Brokers) == 0 {
		return fmt.Errorf("broker.kafka.brokers is required when broker.type is kafka")
	}

	switch cfg.Webhook.OnCacheError {
	case "", constants.FallbackAllow, constants.FallbackDeny:
	default:
		return fmt.Errorf("webhook.on_cache_error must be %q or %q, got %q",
			constants.FallbackAllow, constants.FallbackDeny, cfg.Webhook.OnCacheError)
	}

	if cfg.Webhook.SeenTTLSeconds < 0 {
		return fmt.Errorf("webhook.seen_ttl_seconds must not be negative")
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate_limit.rps must be positive when rate limiting is enabled")
	}

	return nil
}
