package kv

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-intake/internal/repo"
)

// SQLStore implements Store on the kv_entries and kv_members tables. It is
// the fallback for deployments without Redis; expired rows are invisible to
// reads and removed by PurgeExpired.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStore returns a store over db. The kv tables must already be migrated.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return repo.SetKV(ctx, s.db, key, value, ttl, s.now())
}

func (s *SQLStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	err := repo.SetKVIfAbsent(ctx, s.db, key, value, ttl, s.now())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repo.ErrDuplicate):
		return false, nil
	default:
		return false, err
	}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	v, err := repo.GetKV(ctx, s.db, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *SQLStore) Exists(ctx context.Context, key string) (bool, error) {
	return repo.ExistsKV(ctx, s.db, key, s.now())
}

func (s *SQLStore) Del(ctx context.Context, keys ...string) error {
	return repo.DeleteKV(ctx, s.db, keys...)
}

func (s *SQLStore) SAdd(ctx context.Context, set, member string) error {
	return repo.AddMember(ctx, s.db, set, member)
}

func (s *SQLStore) SRem(ctx context.Context, set, member string) error {
	return repo.RemoveMember(ctx, s.db, set, member)
}

func (s *SQLStore) SMembers(ctx context.Context, set string) ([]string, error) {
	return repo.ListMembers(ctx, s.db, set)
}

func (s *SQLStore) ClaimExpired(ctx context.Context, set, member, markerKey, payloadKey string) (string, bool, error) {
	return repo.ClaimExpiredMember(ctx, s.db, set, member, markerKey, payloadKey, s.now())
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredKV(ctx, s.db, s.now())
}
