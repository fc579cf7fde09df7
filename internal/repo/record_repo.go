// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only audit log of automated
// replies and transfers (ai_message_records).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-intake/internal/domain"
)

// CreateRecord appends one audit row. Date defaults to now (UTC).
func CreateRecord(ctx context.Context, db *gorm.DB, rec *domain.AIMessageRecord) error {
	if rec.Date.IsZero() {
		rec.Date = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}

// RecordsByPlatformMessage returns the audit rows for one platform message id,
// oldest first.
func RecordsByPlatformMessage(ctx context.Context, db *gorm.DB, messageID string) ([]domain.AIMessageRecord, error) {
	var out []domain.AIMessageRecord
	err := db.WithContext(ctx).
		Where("sainiu_id = ?", messageID).
		Order("id asc").
		Find(&out).Error
	return out, err
}
