package repositories

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vidshare/backend/internal/auth"
)

// rotateSessionScript swaps the stored hash only when it still equals ARGV[1].
// Returns 1 on success, 0 when the slot is empty, -1 on mismatch.
// ARGV: [1]=expected_hash, [2]=next_hash, [3]=expires_at_ms
var rotateSessionScript = goredis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'token_hash')
if not current then
  return 0
end
if current ~= ARGV[1] then
  return -1
end
redis.call('HSET', KEYS[1], 'token_hash', ARGV[2], 'expires_at', ARGV[3])
redis.call('PEXPIREAT', KEYS[1], ARGV[3])
return 1
`)

// OpenRedis creates a go-redis client from a URL such as redis://localhost:6379/0.
func OpenRedis(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// RedisSessionStore keeps each user's refresh slot in a Redis hash that
// expires together with the refresh token.
type RedisSessionStore struct {
	rdb *goredis.Client
}

// NewRedisSessionStore constructs a session store backed by Redis.
func NewRedisSessionStore(rdb *goredis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func sessionKey(userID string) string {
	return "session:" + userID
}

// Put overwrites the slot.
func (s *RedisSessionStore) Put(ctx context.Context, session auth.Session) error {
	key := sessionKey(session.UserID)
	expiresMs := session.ExpiresAt.UnixMilli()

	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, "token_hash", session.TokenHash, "expires_at", strconv.FormatInt(expiresMs, 10))
		pipe.PExpireAt(ctx, key, session.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Rotate runs the compare-and-swap script.
func (s *RedisSessionStore) Rotate(ctx context.Context, userID, expectedHash string, next auth.Session) error {
	result, err := rotateSessionScript.Run(ctx, s.rdb, []string{sessionKey(userID)},
		expectedHash,
		next.TokenHash,
		strconv.FormatInt(next.ExpiresAt.UnixMilli(), 10),
	).Int()
	if err != nil {
		return fmt.Errorf("rotate session script failed: %w", err)
	}

	switch result {
	case 1:
		return nil
	case 0:
		return auth.ErrSessionNotFound
	default:
		return auth.ErrTokenMismatch
	}
}

// Clear deletes the slot.
func (s *RedisSessionStore) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

var _ auth.SessionStore = (*RedisSessionStore)(nil)
