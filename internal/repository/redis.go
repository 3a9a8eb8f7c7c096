package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nylour/internal/config"
	"nylour/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisLocationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisLocationStore(client *redis.Client, ttl time.Duration) *RedisLocationStore {
	return &RedisLocationStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisLocationStore) GetLocation(ctx context.Context, customerID int64) (*models.Location, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("customer_location:%d", customerID)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location from redis: %w", err)
	}

	var location models.Location
	if err := json.Unmarshal([]byte(val), &location); err != nil {
		return nil, fmt.Errorf("failed to unmarshal location: %w", err)
	}

	return &location, nil
}

func (r *RedisLocationStore) SetLocation(ctx context.Context, location *models.Location) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("customer_location:%d", location.CustomerID)
	data, err := json.Marshal(location)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set location in redis: %w", err)
	}

	return nil
}

func (r *RedisLocationStore) ClearLocation(ctx context.Context, customerID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("customer_location:%d", customerID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete location from redis: %w", err)
	}
	return nil
}

func (r *RedisLocationStore) CheckRateLimit(ctx context.Context, customerID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rate_limit:%d", customerID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
