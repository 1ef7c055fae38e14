package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Broker on Redis lists. Push maps to LPUSH,
// PopAndMoveBlocking to BLMOVE RIGHT LEFT, RemoveFirst to LREM with
// count 1, Length to LLEN.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Connect opens a Redis client from a redis:// or rediss:// URL and verifies
// connectivity with a ping.
func Connect(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("broker: parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("broker: redis ping: %w", err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Push(ctx context.Context, list, value string) error {
	return r.client.LPush(ctx, list, value).Err()
}

func (r *Redis) PopAndMoveBlocking(ctx context.Context, source, dest string, timeout time.Duration) (string, error) {
	val, err := r.client.BLMove(ctx, source, dest, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *Redis) RemoveFirst(ctx context.Context, list, value string) (int64, error) {
	return r.client.LRem(ctx, list, 1, value).Result()
}

func (r *Redis) Length(ctx context.Context, list string) (int64, error) {
	return r.client.LLen(ctx, list).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
