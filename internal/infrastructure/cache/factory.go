package cache

import (
	"context"
	"fmt"

	"github.com/fruitstand/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend is the key-value backend chosen at startup. Client is nil when
// running on the in-memory fallback.
type Backend struct {
	Client *redis.Client
}

// Connect dials redis. Outside production an unreachable redis is tolerated
// and the caller gets an empty Backend so in-memory stores are used instead.
func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	client, err := NewRedisClient(ctx, cfg.Redis)
	if err == nil {
		log.Info("Connected to redis", zap.String("addr", client.Options().Addr))
		return &Backend{Client: client}, nil
	}
	if cfg.App.IsProduction() {
		return nil, fmt.Errorf("redis is required in production: %w", err)
	}
	log.Warn("Redis unavailable, falling back to in-memory stores; "+
		"webhook de-duplication and token revocation will not be shared between instances",
		zap.Error(err))
	return &Backend{}, nil
}

// Available reports whether a redis client is connected
func (b *Backend) Available() bool {
	return b != nil && b.Client != nil
}

// Close releases the redis client if there is one
func (b *Backend) Close() error {
	if !b.Available() {
		return nil
	}
	return b.Client.Close()
}
