// Package session resolves bearer tokens to user ids. Tokens are issued by
// the external auth service, which writes sessions into Redis; this service
// only reads and revokes them.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// Data is the payload stored per session token.
type Data struct {
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store validates tokens against session records.
type Store interface {
	Lookup(ctx context.Context, token string) (int, error)
	Save(ctx context.Context, token string, userID int, ttl time.Duration) error
	Revoke(ctx context.Context, token string) error
}

// RedisStore is a Redis-backed session store. Tokens are stored hashed so a
// Redis dump never leaks usable credentials.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "session:"}, nil
}

// NewRedisStoreWithClient builds a store from an existing client, used in tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "session:"}
}

func (s *RedisStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + fmt.Sprintf("%x", sum)
}

// Lookup resolves a token to the owning user id.
func (s *RedisStore) Lookup(ctx context.Context, token string) (int, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return 0, fmt.Errorf("unmarshal session: %w", err)
	}
	return data.UserID, nil
}

// Save stores a session with a TTL.
func (s *RedisStore) Save(ctx context.Context, token string, userID int, ttl time.Duration) error {
	data, err := json.Marshal(Data{UserID: userID, CreatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Revoke deletes a session.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
