package services

import (
	"context"
	"time"

	"github.com/tbourn/go-chat-intake/internal/kv"
)

// HandoffMarker remembers buyers recently transferred to a human, so the
// pipeline stays out of the conversation for a while.
type HandoffMarker struct {
	Store kv.Store
	TTL   time.Duration
}

// NewHandoffMarker returns a marker with the given hold time.
func NewHandoffMarker(store kv.Store, ttl time.Duration) *HandoffMarker {
	return &HandoffMarker{Store: store, TTL: ttl}
}

// Mark starts or restarts the hold for buyerUID.
func (h *HandoffMarker) Mark(ctx context.Context, buyerUID string) error {
	return h.Store.SetEx(ctx, handoffKey(buyerUID), "1", h.TTL)
}

// Active reports whether buyerUID is currently held by a human agent.
func (h *HandoffMarker) Active(ctx context.Context, buyerUID string) (bool, error) {
	return h.Store.Exists(ctx, handoffKey(buyerUID))
}
