package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/repo"
)

// ProcessTracker records each message's progress through the seven pipeline
// steps. Records are created once, move forward only and are never deleted.
type ProcessTracker struct {
	DB *gorm.DB
}

// NewProcessTracker returns a tracker over db.
func NewProcessTracker(db *gorm.DB) *ProcessTracker { return &ProcessTracker{DB: db} }

// Create initializes the record for messageID at the fetch step. A second
// call for the same id leaves the existing record untouched.
func (p *ProcessTracker) Create(ctx context.Context, messageID string, kind domain.MessageKind) error {
	tr := otel.Tracer("services/ProcessTracker")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	created, err := repo.CreateTracking(ctx, p.DB, messageID, kind)
	if err != nil {
		return fmt.Errorf("create tracking %s: %w", messageID, err)
	}
	if !created {
		loggerFrom(ctx).Debug().Str("message_id", messageID).Msg("tracking record already exists")
	}
	return nil
}

// Advance writes value into the column for step. A message with no record is
// not worth tracking: the call logs a warning and returns nil.
func (p *ProcessTracker) Advance(ctx context.Context, messageID string, step domain.Step, value string) error {
	tr := otel.Tracer("services/ProcessTracker")
	ctx, span := tr.Start(ctx, "Advance",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.Int("step", int(step)),
		),
	)
	defer span.End()

	err := repo.AdvanceTracking(ctx, p.DB, messageID, step, value)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		loggerFrom(ctx).Warn().Str("message_id", messageID).Stringer("step", step).Msg("no tracking record, step not written")
		return nil
	default:
		return fmt.Errorf("advance %s to %s: %w", messageID, step, err)
	}
}

// Finalize marks the platform call successful and the record finished.
// Finalizing twice is a no-op; a missing record is logged like Advance.
func (p *ProcessTracker) Finalize(ctx context.Context, messageID string) error {
	tr := otel.Tracer("services/ProcessTracker")
	ctx, span := tr.Start(ctx, "Finalize",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	err := repo.FinishTracking(ctx, p.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		loggerFrom(ctx).Warn().Str("message_id", messageID).Msg("no tracking record to finalize")
		return nil
	}
	return err
}

// Get returns the record for messageID or ErrTrackingNotFound.
func (p *ProcessTracker) Get(ctx context.Context, messageID string) (*domain.ProcessTracking, error) {
	rec, err := repo.GetTracking(ctx, p.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTrackingNotFound
	}
	return rec, err
}

// ListPage returns a page of records, newest first, and the total count.
// A nil finished lists every record.
func (p *ProcessTracker) ListPage(ctx context.Context, finished *bool, page, pageSize int) ([]domain.ProcessTracking, int64, error) {
	tr := otel.Tracer("services/ProcessTracker")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountTracking(ctx, p.DB, finished)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ProcessTracking{}, 0, nil
	}
	items, err := repo.ListTrackingPage(ctx, p.DB, finished, (page-1)*pageSize, pageSize)
	return items, total, err
}
