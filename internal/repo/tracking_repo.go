// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ProcessTracking model.
//
// Functions:
//
//   - CreateTracking(ctx, db, messageID, kind) -> (created bool, error)
//     Create-if-absent on the unique message id; a second call is a no-op.
//
//   - AdvanceTracking(ctx, db, messageID, step, value) -> error
//     Writes one step column, forward only. ErrNotFound when no row exists,
//     ErrStaleStep when the row is already past step.
//
//   - FinishTracking(ctx, db, messageID) -> error
//     Marks the platform-success step and is_finished=1. Idempotent.
//
//   - GetTracking / ListTrackingPage / CountTracking for inspection.
//
// Rows are never deleted.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-chat-intake/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleStep is returned when a write would move a record backwards.
var ErrStaleStep = errors.New("tracking step is behind the record")

// ErrInvalidStep is returned for a step outside 1..7.
var ErrInvalidStep = errors.New("invalid tracking step")

// CreateTracking inserts the step-1 row for messageID unless one exists.
func CreateTracking(ctx context.Context, db *gorm.DB, messageID string, kind domain.MessageKind) (bool, error) {
	rec := &domain.ProcessTracking{
		MessageID:   messageID,
		MessageType: kind.Code(),
		FetchInfo:   strconv.Itoa(int(domain.StepFetch)),
		LastStep:    int(domain.StepFetch),
		Handler:     domain.HandlerAI,
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "sainiu_msg_id"}}, DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AdvanceTracking sets the column for step to value. The write only applies
// when the record has not moved past step and is not finished.
func AdvanceTracking(ctx context.Context, db *gorm.DB, messageID string, step domain.Step, value string) error {
	if !step.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStep, int(step))
	}
	col := step.Column()
	if col == "" {
		return ErrInvalidStep
	}
	res := db.WithContext(ctx).
		Model(&domain.ProcessTracking{}).
		Where("sainiu_msg_id = ? AND last_step <= ? AND is_finished = 0", messageID, int(step)).
		Updates(map[string]any{col: value, "last_step": int(step)})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return missingOrStale(ctx, db, messageID)
}

// FinishTracking sets the platform-success step and is_finished=1. Calling it
// on an already finished record succeeds without changes.
func FinishTracking(ctx context.Context, db *gorm.DB, messageID string) error {
	res := db.WithContext(ctx).
		Model(&domain.ProcessTracking{}).
		Where("sainiu_msg_id = ? AND is_finished = 0", messageID).
		Updates(map[string]any{
			domain.StepPlatformSuccess.Column(): strconv.Itoa(int(domain.StepPlatformSuccess)),
			"is_finished":                       1,
			"last_step":                         int(domain.StepFinished),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := db.WithContext(ctx).Model(&domain.ProcessTracking{}).
		Where("sainiu_msg_id = ?", messageID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTracking fetches the record for messageID or ErrNotFound.
func GetTracking(ctx context.Context, db *gorm.DB, messageID string) (*domain.ProcessTracking, error) {
	var rec domain.ProcessTracking
	err := db.WithContext(ctx).Where("sainiu_msg_id = ?", messageID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListTrackingPage returns records newest first. A nil finished lists all.
func ListTrackingPage(ctx context.Context, db *gorm.DB, finished *bool, offset, limit int) ([]domain.ProcessTracking, error) {
	var out []domain.ProcessTracking
	err := trackingScope(db.WithContext(ctx), finished).
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountTracking returns the number of records matching the finished filter.
func CountTracking(ctx context.Context, db *gorm.DB, finished *bool) (int64, error) {
	var total int64
	err := trackingScope(db.WithContext(ctx).Model(&domain.ProcessTracking{}), finished).
		Count(&total).Error
	return total, err
}

func trackingScope(q *gorm.DB, finished *bool) *gorm.DB {
	if finished == nil {
		return q
	}
	if *finished {
		return q.Where("is_finished = 1")
	}
	return q.Where("is_finished = 0")
}

func missingOrStale(ctx context.Context, db *gorm.DB, messageID string) error {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.ProcessTracking{}).
		Where("sainiu_msg_id = ?", messageID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStaleStep
}
