package featurestore

import (
	"context"
	"errors"
	"time"

	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per user.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore connects to FEATURE_STORE_ENDPOINT. The pool is bounded and waits at
// most FEATURE_STORE_POOL_TIMEOUT_MS for a connection, so saturation surfaces as an error
// instead of a queue.
func NewRedisStore(configs *configs.AppConfigs) *RedisStore {
	c := configs.Configs
	timeout := time.Duration(c.FeatureStore_TimeoutMs) * time.Millisecond
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        splitEndpoints(c.FeatureStore_Endpoint),
		Password:     c.FeatureStore_Password,
		DB:           c.FeatureStore_DB,
		PoolSize:     c.FeatureStore_PoolSize,
		PoolTimeout:  time.Duration(c.FeatureStore_PoolTimeoutMs) * time.Millisecond,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	return &RedisStore{client: client}
}

func (s *RedisStore) HGetAll(ctx context.Context, keys []string) ([]map[string]string, error) {
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make([]map[string]string, len(keys))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
