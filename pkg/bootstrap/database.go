package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"waweb/internal/config"
	"waweb/internal/logger"
	"waweb/pkg/retry"
)

type DatabaseConnector struct {
	cfg    *config.Config
	logger logger.Logger

	MongoClient *mongo.Client
	MongoDB     *mongo.Database
	Redis       *redis.Client
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		cfg:    cfg,
		logger: log,
	}
}

// InitMongoDB connects and pings with retry; cold starts in compose
// environments routinely race the database container.
func (d *DatabaseConnector) InitMongoDB(ctx context.Context) error {
	policy := retry.Policy{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}

	err := retry.Retry(ctx, policy, func() error {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(d.cfg.Database.MongoDB.URI))
		if err != nil {
			return err
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(connectCtx)
			return err
		}

		d.MongoClient = client
		d.MongoDB = client.Database(d.cfg.Database.MongoDB.Database)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mongodb connection failed: %w", err)
	}

	d.logger.Infow("connected to mongodb", "database", d.cfg.Database.MongoDB.Database)
	return nil
}

// InitRedis is optional: the caller decides whether a failure is fatal.
func (d *DatabaseConnector) InitRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", d.cfg.Database.Redis.Host, d.cfg.Database.Redis.Port),
		Password: d.cfg.Database.Redis.Password,
		DB:       d.cfg.Database.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis connection failed: %w", err)
	}

	d.Redis = client
	d.logger.Infow("connected to redis", "addr", client.Options().Addr)
	return nil
}

func (d *DatabaseConnector) ShutdownDatabases(ctx context.Context) {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.logger.Warnw("redis close failed", "error", err)
		}
	}
	if d.MongoClient != nil {
		if err := d.MongoClient.Disconnect(ctx); err != nil {
			d.logger.Warnw("mongodb disconnect failed", "error", err)
		}
	}
}
