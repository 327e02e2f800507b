package localstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"firechat/internal/domain/repository"
)

// RedisStore namespaces keys under "firechat:<namespace>:" so several installs
// can share one server.
type RedisStore struct {
	cli    *redis.Client
	prefix string
}

func NewRedisStore(ctx context.Context, url, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{cli: cli, prefix: "firechat:" + namespace + ":"}, nil
}

var _ repository.LocalStore = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.cli.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return s.cli.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.cli.Close()
}
