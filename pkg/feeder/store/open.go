package store

import (
	"context"
	"fmt"

	"github.com/StrathCole/oracle-push/pkg/config"
)

// Open builds the store selected by cfg.
func Open(ctx context.Context, cfg config.StateConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(nil), nil
	case "redis":
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, cfg.Type)
	}
}
