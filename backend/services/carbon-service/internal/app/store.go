package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"carboncheck/backend/libs/db"
	libredis "carboncheck/backend/libs/redis"
	appconfig "carboncheck/backend/services/carbon-service/internal/config"
	redisstore "carboncheck/backend/services/carbon-service/internal/redis"
	"carboncheck/backend/services/carbon-service/internal/repository"
)

// OpenStore connects the reading store selected by cfg. The returned close function is never nil.
func OpenStore(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (repository.ReadingStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case appconfig.DriverMemory:
		logger.Warn("using in-memory reading store, readings are lost on restart")
		return repository.NewMemoryStore(), noop, nil

	case appconfig.DriverPostgres, appconfig.DriverSQLite:
		var (
			sqlStore *repository.SQLStore
			closeFn  func() error
			err      error
		)
		if cfg.Store.Driver == appconfig.DriverPostgres {
			sqlDB, openErr := db.NewPostgresDB(cfg.Database.DSN)
			if openErr != nil {
				return nil, noop, fmt.Errorf("open postgres: %w", openErr)
			}
			closeFn = sqlDB.Close
			sqlStore, err = repository.NewSQLStore(sqlDB, cfg.Store.Table, repository.Postgres)
		} else {
			sqlDB, openErr := db.NewSQLiteDB(cfg.SQLite.Path)
			if openErr != nil {
				return nil, noop, fmt.Errorf("open sqlite: %w", openErr)
			}
			closeFn = sqlDB.Close
			sqlStore, err = repository.NewSQLStore(sqlDB, cfg.Store.Table, repository.SQLite)
		}
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		if err := sqlStore.EnsureSchema(ctx); err != nil {
			closeFn()
			return nil, noop, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("reading store ready", zap.String("driver", cfg.Store.Driver), zap.String("table", cfg.Store.Table))
		return sqlStore, closeFn, nil

	case appconfig.DriverRedis:
		client, err := libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open redis: %w", err)
		}
		logger.Info("reading store ready", zap.String("driver", cfg.Store.Driver), zap.String("prefix", cfg.Store.Table))
		return redisstore.NewStore(client, cfg.Store.Table), client.Close, nil
	}

	return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
