package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimScript implements ClaimExpired.
// KEYS[1]=set KEYS[2]=marker KEYS[3]=payload ARGV[1]=member
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return false
end
if redis.call('SREM', KEYS[1], ARGV[1]) == 0 then
  return false
end
local p = redis.call('GET', KEYS[3])
if p then
  redis.call('DEL', KEYS[3])
  return {1, p}
end
return {1, ''}
`)

// RedisStore implements Store on a single-node go-redis client. ClaimExpired
// runs one script over the watched set and per-user keys, which a cluster
// would reject as CROSSSLOT.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client. The caller owns its lifetime.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// DialRedis builds a client for addr and verifies it with PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, *redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisStore(c), c, nil
}

func (s *RedisStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) SAdd(ctx context.Context, set, member string) error {
	return s.rdb.SAdd(ctx, set, member).Err()
}

func (s *RedisStore) SRem(ctx context.Context, set, member string) error {
	return s.rdb.SRem(ctx, set, member).Err()
}

func (s *RedisStore) SMembers(ctx context.Context, set string) ([]string, error) {
	return s.rdb.SMembers(ctx, set).Result()
}

func (s *RedisStore) ClaimExpired(ctx context.Context, set, member, markerKey, payloadKey string) (string, bool, error) {
	res, err := claimScript.Run(ctx, s.rdb, []string{set, markerKey, payloadKey}, member).Slice()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(res) != 2 {
		return "", false, fmt.Errorf("claim script: unexpected reply %v", res)
	}
	payload, _ := res[1].(string)
	return payload, true, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
