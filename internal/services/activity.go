package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/kv"
)

// ActivityTracker keeps a sliding "still talking" marker per user and a set
// of watched users, and reports users whose marker has lapsed.
type ActivityTracker struct {
	Store kv.Store
	TTL   time.Duration // silence window
}

// NewActivityTracker returns a tracker with the given silence window.
func NewActivityTracker(store kv.Store, ttl time.Duration) *ActivityTracker {
	return &ActivityTracker{Store: store, TTL: ttl}
}

// Touch refreshes the marker for user and adds user to the watched set.
func (a *ActivityTracker) Touch(ctx context.Context, user string) error {
	if err := a.Store.SetEx(ctx, activityMarkerKey(user), "1", a.TTL); err != nil {
		return fmt.Errorf("touch %s: %w", user, err)
	}
	if err := a.Store.SAdd(ctx, watchedSet, user); err != nil {
		return fmt.Errorf("watch %s: %w", user, err)
	}
	return nil
}

// PollSilentUser scans the watched set for a user whose marker has expired,
// claims that user and returns the staged burst payload. Users claimed with no
// payload are dropped from the set and the scan continues. It returns nil
// when no burst is ready.
//
// Each claim is a single store operation, so overlapping scans flush a burst
// at most once.
func (a *ActivityTracker) PollSilentUser(ctx context.Context) (*domain.InboundEvent, error) {
	members, err := a.Store.SMembers(ctx, watchedSet)
	if err != nil {
		return nil, fmt.Errorf("scan watched set: %w", err)
	}
	for _, user := range members {
		payload, claimed, err := a.Store.ClaimExpired(ctx, watchedSet, user, activityMarkerKey(user), burstPayloadKey(user))
		if err != nil {
			return nil, fmt.Errorf("claim %s: %w", user, err)
		}
		if !claimed {
			continue
		}
		if payload == "" {
			loggerFrom(ctx).Debug().Str("buyer_uid", user).Msg("silent user had no staged payload")
			continue
		}
		ev, err := domain.DecodeEvent([]byte(payload))
		if err != nil || ev.IsEmpty() {
			loggerFrom(ctx).Warn().Err(err).Str("buyer_uid", user).Msg("discarding unreadable burst payload")
			continue
		}
		return &ev, nil
	}
	return nil, nil
}
