package server

import (
	"context"

	"taskmaker/backend/internal/cache"
	"taskmaker/backend/internal/config"
	"taskmaker/backend/internal/database"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// OpenDatabase connects the pool described by cfg and migrates the schema.
func OpenDatabase(cfg *config.Config, log *logrus.Logger) (*database.DatabasePool, error) {
	level := logger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        level,
		Writer:          log,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(pool.DB); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return pool, nil
}

// OpenRedis returns nil when redis is disabled or unreachable; the server
// then runs on the in-process cache and denylist.
func OpenRedis(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) *cache.RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}

	redisCache := cache.NewRedisCache(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err := redisCache.Health(ctx); err != nil {
		log.WithError(err).WithField("addr", cfg.GetRedisAddr()).Warn("redis unavailable, using in-process cache only")
		_ = redisCache.Close()
		return nil
	}
	return redisCache
}
