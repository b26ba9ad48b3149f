package store

import (
	"context"
	"fmt"

	"sellsmart/internal/config"
)

// New constructs a Store from configuration. Supported kinds: "memory",
// "redis", "mongo", "postgres".
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreKind {
	case "memory", "mem":
		return NewMemory(), nil
	case "redis":
		return NewRedis(cfg.RedisURL, cfg.RedisNamespace)
	case "mongo":
		return NewMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
	case "postgres":
		return NewPostgres(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store kind: %s", cfg.StoreKind)
	}
}
