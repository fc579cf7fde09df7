// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the SQL key-value primitives used when
// no Redis is available: expiring string values and named sets.
//
// Expiry is evaluated against the caller-supplied now, so expired rows are
// invisible to reads before PurgeExpiredKV removes them.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-chat-intake/internal/domain"
)

// ErrDuplicate indicates that a row with the same unique key already exists.
var ErrDuplicate = errors.New("duplicate")

// SetKV upserts key with value, expiring at now+ttl.
func SetKV(ctx context.Context, db *gorm.DB, key, value string, ttl time.Duration, now time.Time) error {
	rec := &domain.KVEntry{Key: key, Value: value, ExpiresAt: now.Add(ttl), CreatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kv_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "created_at"}),
		}).
		Create(rec).Error
}

// SetKVIfAbsent inserts key only when no live row holds it. It returns
// ErrDuplicate when the key is taken. The primary key makes the insert the
// single point of arbitration between concurrent callers.
func SetKVIfAbsent(ctx context.Context, db *gorm.DB, key, value string, ttl time.Duration, now time.Time) error {
	if err := db.WithContext(ctx).
		Where("kv_key = ? AND expires_at <= ?", key, now).
		Delete(&domain.KVEntry{}).Error; err != nil {
		return err
	}
	rec := &domain.KVEntry{Key: key, Value: value, ExpiresAt: now.Add(ttl), CreatedAt: now}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetKV returns the live value for key or ErrNotFound.
func GetKV(ctx context.Context, db *gorm.DB, key string, now time.Time) (string, error) {
	var rec domain.KVEntry
	err := db.WithContext(ctx).
		Where("kv_key = ? AND expires_at > ?", key, now).
		First(&rec).Error
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

// ExistsKV reports whether key holds a live value.
func ExistsKV(ctx context.Context, db *gorm.DB, key string, now time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.KVEntry{}).
		Where("kv_key = ? AND expires_at > ?", key, now).
		Count(&n).Error
	return n > 0, err
}

// DeleteKV removes keys regardless of expiry.
func DeleteKV(ctx context.Context, db *gorm.DB, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return db.WithContext(ctx).Where("kv_key IN ?", keys).Delete(&domain.KVEntry{}).Error
}

// AddMember adds member to set; adding an existing member is a no-op.
func AddMember(ctx context.Context, db *gorm.DB, set, member string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.KVMember{SetName: set, Member: member}).Error
}

// RemoveMember removes member from set.
func RemoveMember(ctx context.Context, db *gorm.DB, set, member string) error {
	return db.WithContext(ctx).
		Where("set_name = ? AND member_key = ?", set, member).
		Delete(&domain.KVMember{}).Error
}

// ListMembers returns the members of set in insertion order.
func ListMembers(ctx context.Context, db *gorm.DB, set string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).Model(&domain.KVMember{}).
		Where("set_name = ?", set).
		Order("created_at asc").
		Pluck("member_key", &out).Error
	return out, err
}

// ClaimExpiredMember removes member from set if and only if markerKey holds
// no live value, as one conditional DELETE. Only the caller whose DELETE hit
// the row proceeds to read and delete payloadKey. claimed reports whether this
// caller won; payload is empty when nothing was staged.
func ClaimExpiredMember(ctx context.Context, db *gorm.DB, set, member, markerKey, payloadKey string, now time.Time) (payload string, claimed bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`DELETE FROM kv_members
			  WHERE set_name = ? AND member_key = ?
			    AND NOT EXISTS (SELECT 1 FROM kv_entries WHERE kv_key = ? AND expires_at > ?)`,
			set, member, markerKey, now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = true

		var rec domain.KVEntry
		err := tx.Where("kv_key = ? AND expires_at > ?", payloadKey, now).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		default:
			payload = rec.Value
		}
		return tx.Where("kv_key = ?", payloadKey).Delete(&domain.KVEntry{}).Error
	})
	if err != nil {
		return "", false, err
	}
	return payload, claimed, nil
}

// PurgeExpiredKV deletes every expired value and returns how many went.
func PurgeExpiredKV(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.KVEntry{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation recognizes unique/primary key violations across drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "constraint failed: primary key") ||
		strings.Contains(low, "duplicate entry")
}
