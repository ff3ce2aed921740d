// Package cache provides the optional Redis-backed snapshot store for
// price quotes. With it configured, a restart degrades to stale quotes
// instead of the static fallback table.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

const snapshotTTL = 15 * time.Minute

// RedisSnapshotStore persists the last good price quote sets in Redis
type RedisSnapshotStore struct {
	client *redis.Client
	logger *zap.Logger
}

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisSnapshotStore connects to Redis and verifies the connection
func NewRedisSnapshotStore(cfg Config, logger *zap.Logger) (*RedisSnapshotStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("addr", cfg.Addr))

	return &RedisSnapshotStore{client: rdb, logger: logger}, nil
}

// SaveSnapshot stores a quote set under the symbol-set key
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, key string, quotes map[string]entities.PriceQuote) error {
	data, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKey(key), data, snapshotTTL).Err()
}

// LoadSnapshot retrieves a quote set by symbol-set key
func (s *RedisSnapshotStore) LoadSnapshot(ctx context.Context, key string) (map[string]entities.PriceQuote, error) {
	data, err := s.client.Get(ctx, snapshotKey(key)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var quotes map[string]entities.PriceQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return quotes, nil
}

// Close releases the connection
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

func snapshotKey(key string) string {
	return "prices:snapshot:" + key
}
