package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"waweb/internal/constants"
	"waweb/internal/message"
	"waweb/internal/notify"
	"waweb/internal/webhook"
	"waweb/pkg/bootstrap"
	"waweb/pkg/circuitbreaker"
	"waweb/pkg/health"
	"waweb/pkg/metrics"
	"waweb/pkg/middleware"
	"waweb/pkg/migrations"
	"waweb/pkg/ratelimit"
)

type closer interface {
	Close() error
}

type Application struct {
	base      *bootstrap.Base
	databases *bootstrap.DatabaseConnector
	notifier  closer

	webhookService *webhook.Service
	messageService message.Service
	server         *http.Server
}

func NewApplication(base *bootstrap.Base) *Application {
	return &Application{base: base}
}

func (a *Application) Initialize(ctx context.Context) error {
	cfg := a.base.Config
	log := a.base.Logger

	metrics.RegisterWebhookMetrics()
	metrics.RegisterNotifierMetrics()
	if cfg.RateLimit.Enabled {
		metrics.RegisterRateLimitMetrics()
	}
	if cfg.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.databases = bootstrap.NewDatabaseConnector(cfg, log)
	if err := a.databases.InitMongoDB(ctx); err != nil {
		return err
	}
	if err := migrations.EnsureMessageIndexes(ctx, a.databases.MongoDB); err != nil {
		return err
	}

	// Redis backs the duplicate fast path only; the service runs without it.
	var seenCache webhook.SeenCache = webhook.NoopSeenCache{}
	if cfg.Database.Redis.Host != "" {
		if err := a.databases.InitRedis(ctx); err != nil {
			log.Warnw("redis unavailable, duplicate fast path disabled", "error", err)
		} else {
			seenCache = webhook.NewRedisSeenCache(a.databases.Redis)
			if cfg.CircuitBreaker.Enabled {
				seenCache = webhook.NewCircuitBreakerSeenCache(
					seenCache,
					circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("seen-cache")),
				)
			}
		}
	}

	var notifier message.Notifier
	switch cfg.Broker.Type {
	case "kafka":
		kn := notify.NewKafkaNotifier(cfg.Broker.Kafka.Brokers, cfg.Broker.Kafka.EventsTopic, log)
		a.notifier = kn
		notifier = kn
		log.Infow("kafka notifier enabled", "topic", cfg.Broker.Kafka.EventsTopic)
	default:
		nn := notify.NewNoopNotifier()
		a.notifier = nn
		notifier = nn
	}

	repo := message.NewRepository(a.databases.MongoDB)
	a.messageService = message.NewService(repo, notifier, log)
	a.webhookService = webhook.NewService(repo, seenCache, notifier, cfg.Webhook, log)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.buildRouter(),
		ReadTimeout:  cfg.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: cfg.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *Application) buildRouter() *gin.Engine {
	cfg := a.base.Config
	log := a.base.Logger

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(log),
		middleware.RecoveryMiddleware(log),
	)

	registry := health.NewCheckerRegistry()
	registry.Register(health.NewMongoDBChecker(a.databases.MongoClient))
	if a.databases.Redis != nil {
		registry.Register(health.NewRedisChecker(a.databases.Redis))
	}
	router.GET("/health", func(c *gin.Context) {
		h := registry.Check(c.Request.Context())
		status := http.StatusOK
		if h.Status != health.StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, h)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhookHandler := webhook.NewHandler(a.webhookService, cfg.Webhook, log)
	webhookHandler.RegisterRoutes(router)

	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		rlCfg := ratelimit.DefaultConfig()
		if cfg.RateLimit.RPS > 0 {
			rlCfg.RPS = cfg.RateLimit.RPS
		}
		if cfg.RateLimit.Burst > 0 {
			rlCfg.Burst = cfg.RateLimit.Burst
		}
		api.Use(ratelimit.RateLimitMiddleware(rlCfg))
	}
	message.NewHandler(a.messageService, log).RegisterRoutes(api)

	return router
}

func (a *Application) Run(ctx context.Context) error {
	log := a.base.Logger

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *Application) Shutdown() {
	log := a.base.Logger

	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			log.Warnw("notifier close failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if a.databases != nil {
		a.databases.ShutdownDatabases(shutdownCtx)
	}

	log.Infow("shutdown complete")
}
