package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/cache"
	"github.com/desertthunder/cliqspot/internal/models"
	"github.com/desertthunder/cliqspot/internal/repositories"
	"github.com/desertthunder/cliqspot/internal/shared"
)

func noop() error { return nil }

// openStore builds the configured refresh token store. The returned func releases it.
func openStore(config *shared.Config, logger *log.Logger) (models.TokenStore, func() error, error) {
	switch config.Storage.Backend {
	case "sqlite":
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Info("using sqlite token store", "path", config.Database.Path)
		return repositories.NewSQLiteTokenStore(db), db.Close, nil
	case "", "file":
		logger.Info("using file token store", "path", config.Storage.Path)
		return repositories.NewFileTokenStore(config.Storage.Path, logger), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, config.Storage.Backend)
	}
}

// openCache builds the configured access token cache, or nil when caching is off.
func openCache(ctx context.Context, config *shared.Config, logger *log.Logger) (cache.TokenCache, func() error, error) {
	switch config.Cache.Backend {
	case "memory":
		logger.Info("caching access tokens in memory")
		return cache.NewMemoryCache(), noop, nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, config.Cache.RedisAddr, config.Cache.RedisPassword, config.Cache.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Cache.RedisAddr, err)
		}
		logger.Info("caching access tokens in redis", "addr", config.Cache.RedisAddr)
		return cache.NewRedisCache(client, logger), client.Close, nil
	case "", "none":
		return nil, noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, config.Cache.Backend)
	}
}
