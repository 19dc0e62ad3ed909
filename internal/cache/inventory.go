package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pulse/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	UserSummaryKeyPrefix    = "user:summary:%d"
	UserByUsernameKeyPrefix = "user:username:%s"
)

const (
	UserSummaryTTL = 5 * time.Minute
	UserRecordTTL  = 2 * time.Minute
)

func UserSummaryKey(userID int64) string {
	return fmt.Sprintf(UserSummaryKeyPrefix, userID)
}

func UserByUsernameKey(username string) string {
	return fmt.Sprintf(UserByUsernameKeyPrefix, username)
}

// GetJSON reads key into dest. It reports false on a miss or when caching is disabled.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with the given TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// MGetJSON reads several keys in one round trip. The result maps key index to
// the decoded value; misses and undecodable entries are absent.
func MGetJSON[T any](ctx context.Context, keys []string) (map[int]T, error) {
	out := make(map[int]T, len(keys))
	if client == nil || len(keys) == 0 {
		return out, nil
	}
	vals, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return out, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var decoded T
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			continue
		}
		out[i] = decoded
	}
	return out, nil
}

// SetManyJSON writes several entries with one pipeline.
func SetManyJSON[T any](ctx context.Context, entries map[string]T, ttl time.Duration) error {
	if client == nil || len(entries) == 0 {
		return nil
	}
	pipe := client.Pipeline()
	for key, v := range entries {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		pipe.Set(ctx, key, b, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Aside tries Redis first; on a miss fetch fills dest and the result is stored
// best-effort. Cache errors never fail the read.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate deletes keys, logging failures.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateUser drops the cached summary and record of a user.
func InvalidateUser(ctx context.Context, userID int64, username string) {
	keys := []string{UserSummaryKey(userID)}
	if username != "" {
		keys = append(keys, UserByUsernameKey(username))
	}
	Invalidate(ctx, keys...)
}
