package repositories

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/infrastructure/repositories/memory"
	redisrepo "github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/infrastructure/repositories/redis"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/pkg/config"
)

// RepositoryFactory creates the shared stores, preferring Redis when it is
// enabled and reachable and falling back to memory otherwise. The connection
// registry is always in-memory: it holds live transport handles that cannot
// leave the process.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory stores",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis stores")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory stores")
	}

	return factory, nil
}

// CreateConnectionRegistry creates the in-memory connection registry.
func (f *RepositoryFactory) CreateConnectionRegistry() ports.ConnectionRegistry {
	return memory.NewMemoryConnectionRegistry()
}

// CreateSessionDirectory creates a session directory (Redis or memory with fallback).
func (f *RepositoryFactory) CreateSessionDirectory() ports.SessionDirectory {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisSessionDirectory(f.redisClient)
	}
	return memory.NewMemorySessionDirectory()
}

// CreateTickStore creates a tick store (Redis or memory with fallback).
func (f *RepositoryFactory) CreateTickStore() ports.TickStore {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisTickStore(f.redisClient)
	}
	return memory.NewMemoryTickStore()
}

// Close closes the Redis connection if one is in use.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
