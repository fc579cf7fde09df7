// Package kv defines the ephemeral key-value store shared by the dedup gate,
// the activity tracker, the burst stager and the session cache, together with
// a Redis implementation and a SQL implementation backed by the repo layer.
//
// Expiry is always an explicit parameter. The store is expected to be safe
// for concurrent use by the poller and the push endpoint.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal set of primitives the intake pipeline needs.
type Store interface {
	// SetEx writes value under key, replacing any previous value and TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes value only if key is absent. It reports whether it wrote.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, set, member string) error
	SRem(ctx context.Context, set, member string) error
	SMembers(ctx context.Context, set string) ([]string, error)

	// ClaimExpired removes member from set if markerKey is absent and the
	// member is still listed, then reads and deletes payloadKey. All of it
	// happens as one atomic step: of any number of concurrent callers at most
	// one sees claimed == true. payload is "" when nothing was staged.
	ClaimExpired(ctx context.Context, set, member, markerKey, payloadKey string) (payload string, claimed bool, err error)

	Ping(ctx context.Context) error
}
