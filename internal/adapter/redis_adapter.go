package adapter

import (
	"RNChatMedia/internal/config"
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(cfg *config.AppConfig) (*RedisAdapter, error) {
	addr := cfg.RedisAddr()
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err, "addr", addr)
		_ = client.Close()
		return nil, err
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &RedisAdapter{
		client: client,
	}, nil
}

func NewRedisAdapterFromClient(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisAdapter) Client() *redis.Client {
	return r.client
}

func (r *RedisAdapter) Close() error {
	return r.client.Close()
}
