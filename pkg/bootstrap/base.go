// Package bootstrap carries the shared service-startup plumbing: config and
// logger setup plus database connectors.
package bootstrap

import (
	"waweb/internal/config"
	"waweb/internal/logger"
	"waweb/pkg/logging"
)

type Base struct {
	Config *config.Config
	Logger logger.Logger
}

// NewBase loads configuration and builds the logger; failures here happen
// before structured logging exists, so they go through the early logger,
// which exits on error.
func NewBase(configFile, serviceName string) *Base {
	early := logging.NewEarlyLog()

	cfg, err := config.Load(configFile)
	if err != nil {
		early.Error("failed to load config: %v", err)
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		early.Error("failed to initialize logger: %v", err)
	}
	if sl, ok := log.(*logger.SugaredLogger); ok {
		sl.SetServiceName(serviceName)
	}

	return &Base{
		Config: cfg,
		Logger: log,
	}
}
