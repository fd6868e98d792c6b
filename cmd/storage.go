package cmd

import (
	"context"
	"fmt"

	"economy-ledger/app"
	"economy-ledger/config"
	"economy-ledger/store"
	"economy-ledger/store/postgres"
	"economy-ledger/store/redis"
	"economy-ledger/store/sqlite"
)

func memoryFactory() app.PersistenceFactory {
	return func() (store.Persistence, func() error, error) {
		return store.NewInMemoryStore(), nil, nil
	}
}

// backendFactory defers connecting until the suggestion wins.
func backendFactory(ctx context.Context, c *config.Config) app.PersistenceFactory {
	return func() (store.Persistence, func() error, error) {
		switch c.Storage {
		case config.StorageSQLite:
			s, err := sqlite.Open(c.SQLitePath)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		case config.StoragePostgres:
			s := postgres.NewStore(postgres.Config{
				DBHost:     c.DBHost,
				DBPort:     c.DBPort,
				DBName:     c.DBName,
				DBUser:     c.DBUser,
				DBPassword: c.DBPassword,
				DBSchema:   c.DBSchema,
			})
			if err := s.Start(ctx); err != nil {
				return nil, nil, err
			}
			return s, s.Stop, nil
		case config.StorageRedis:
			s, err := redis.Connect(ctx, redis.Config{
				Addr:      c.RedisAddr,
				Password:  c.RedisPassword,
				DB:        c.RedisDB,
				KeyPrefix: c.RedisPrefix,
			})
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		default:
			return nil, nil, fmt.Errorf("unknown storage backend %q", c.Storage)
		}
	}
}
