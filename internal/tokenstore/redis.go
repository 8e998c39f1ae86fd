package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "jobmatch:session:"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// RedisBackend stores each scope as one hash. Every read and write
// refreshes the hash TTL, so sessions in use never expire.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (b *RedisBackend) Get(ctx context.Context, scope, key string) (string, bool, error) {
	hkey := redisKeyPrefix + scope

	var get *redis.StringCmd
	_, err := b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		get = p.HGet(ctx, hkey, key)
		if b.ttl > 0 {
			p.Expire(ctx, hkey, b.ttl)
		}
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return get.Val(), true, nil
}

func (b *RedisBackend) Set(ctx context.Context, scope string, values map[string]string) error {
	key := redisKeyPrefix + scope
	args := make([]any, 0, 2*len(values))
	for k, v := range values {
		args = append(args, k, v)
	}

	_, err := b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, args...)
		if b.ttl > 0 {
			p.Expire(ctx, key, b.ttl)
		}
		return nil
	})
	return err
}

func (b *RedisBackend) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.HDel(ctx, redisKeyPrefix+scope, keys...).Err()
}
