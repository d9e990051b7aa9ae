package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrInvalidToken = errors.New("invalid token")

const tokenKeyPrefix = "auth:token:"

// RedisTokenStore resolves bearer tokens against the token keyspace shared
// with the main backend. Tokens map to the owning user id; a missing key
// means the token is invalid or expired.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore connects to Redis and verifies the connection.
func NewRedisTokenStore(ctx context.Context, addr, password string, database int) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisTokenStore{client: client}, nil
}

// Validate returns the user id owning the token, or ErrInvalidToken.
func (s *RedisTokenStore) Validate(ctx context.Context, token string) (int, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	userID, err := s.client.Get(ctx, tokenKeyPrefix+token).Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, err
	}
	if userID == 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// Close releases the underlying connection pool.
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
