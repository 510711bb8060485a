package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const activityKeyPrefix = "session:activity:"

// RedisStore keeps last-activity timestamps in redis so idle state survives
// server restarts and is shared across replicas. Entries carry a TTL of the
// idle timeout; a missing key simply reads as "no recorded activity".
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient connects and pings a redis server.
func NewRedisClient(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

// NewRedisStore wraps an established client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) LastActivity(ctx context.Context, id string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, activityKeyPrefix+id).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read session activity: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse session activity: %w", err)
	}
	return t, true, nil
}

func (s *RedisStore) Touch(ctx context.Context, id string, t time.Time, ttl time.Duration) error {
	if err := s.client.Set(ctx, activityKeyPrefix+id, t.Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("write session activity: %w", err)
	}
	return nil
}

func (s *RedisStore) Forget(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, activityKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session activity: %w", err)
	}
	return nil
}
