package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-chat-intake/internal/domain"
)

func TestTrackingStats_CountError_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	if _, _, err := TrackingStats(context.Background(), db, nil); err == nil {
		t.Fatalf("expected error due to missing process_tracking table")
	}
}

func TestTrackingStats_ZeroRows(t *testing.T) {
	db := newRepoDB(t, &domain.ProcessTracking{})
	count, maxAt, err := TrackingStats(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("TrackingStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestTrackingStats_FilterAndMax(t *testing.T) {
	db := newRepoDB(t, &domain.ProcessTracking{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for open rows
	t3 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)   // finished row, newest overall
	rows := []domain.ProcessTracking{
		{MessageID: "a", UpdatedAt: t1, CreatedAt: t1},
		{MessageID: "b", UpdatedAt: t2, CreatedAt: t2},
		{MessageID: "c", UpdatedAt: t3, CreatedAt: t3, IsFinished: 1},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	open, fin := false, true
	count, maxAt, err := TrackingStats(context.Background(), db, &open)
	if err != nil || count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("open stats = (%d, %v, %v)", count, maxAt, err)
	}
	count, maxAt, err = TrackingStats(context.Background(), db, &fin)
	if err != nil || count != 1 || !maxAt.Equal(t3) {
		t.Fatalf("finished stats = (%d, %v, %v)", count, maxAt, err)
	}
	count, _, _ = TrackingStats(context.Background(), db, nil)
	if count != 3 {
		t.Fatalf("all stats count = %d", count)
	}
}
