package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"maize-bot/internal/domain/port"
)

// RedisSessionStore хранит сессии чата в Redis с TTL.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// ConnectRedis создаёт клиент и проверяет соединение
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// NewRedisSessionStore создаёт хранилище сессий
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "session:"}
}

func (s *RedisSessionStore) Bind(ctx context.Context, chatUserID int64, accountID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(chatUserID), accountID, ttl).Err()
}

func (s *RedisSessionStore) Lookup(ctx context.Context, chatUserID int64) (string, bool, error) {
	accountID, err := s.client.Get(ctx, s.key(chatUserID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return accountID, true, nil
}

func (s *RedisSessionStore) Drop(ctx context.Context, chatUserID int64) error {
	return s.client.Del(ctx, s.key(chatUserID)).Err()
}

func (s *RedisSessionStore) key(chatUserID int64) string {
	return fmt.Sprintf("%s%d", s.prefix, chatUserID)
}

var _ port.SessionStore = (*RedisSessionStore)(nil)
