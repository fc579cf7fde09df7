package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/kv"
)

// Burst policies.
const (
	BurstLatest = "latest" // the most recent event represents the burst
	BurstFirst  = "first"  // the first event represents the burst
)

// BurstStager writes the representative event of a user's current burst and
// then touches the activity marker. The payload is written first so a flush
// never finds a lapsed marker without a payload.
type BurstStager struct {
	Store      kv.Store
	Activity   *ActivityTracker
	Policy     string
	PayloadTTL time.Duration
}

// NewBurstStager returns a stager. An unknown policy falls back to latest.
func NewBurstStager(store kv.Store, activity *ActivityTracker, policy string, payloadTTL time.Duration) *BurstStager {
	if policy != BurstFirst {
		policy = BurstLatest
	}
	return &BurstStager{Store: store, Activity: activity, Policy: policy, PayloadTTL: payloadTTL}
}

// Stage records ev as part of its user's burst.
func (b *BurstStager) Stage(ctx context.Context, ev domain.InboundEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode burst payload: %w", err)
	}
	user := ev.UserKey()
	key := burstPayloadKey(user)
	if b.Policy != BurstFirst {
		if err := b.Store.SetEx(ctx, key, string(raw), b.PayloadTTL); err != nil {
			return fmt.Errorf("stage burst for %s: %w", user, err)
		}
		return b.Activity.Touch(ctx, user)
	}

	wrote, err := b.Store.SetNX(ctx, key, string(raw), b.PayloadTTL)
	if err != nil {
		return fmt.Errorf("stage burst for %s: %w", user, err)
	}
	if err := b.Activity.Touch(ctx, user); err != nil {
		return err
	}
	if wrote {
		return nil
	}
	// A flush may have claimed the blocking payload before the touch.
	if _, err := b.Store.SetNX(ctx, key, string(raw), b.PayloadTTL); err != nil {
		return fmt.Errorf("stage burst for %s: %w", user, err)
	}
	return nil
}
