package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tbourn/go-chat-intake/internal/kv"
)

// SessionCache maps a buyer and nickname to the dialogue engine's
// conversation id. Entries are overwritten wholesale and expire after TTL.
type SessionCache struct {
	Store kv.Store
	TTL   time.Duration
}

// NewSessionCache returns a cache with the given entry lifetime.
func NewSessionCache(store kv.Store, ttl time.Duration) *SessionCache {
	return &SessionCache{Store: store, TTL: ttl}
}

// Get returns the conversation id, or "" when none is cached.
func (s *SessionCache) Get(ctx context.Context, buyerUID, nick string) (string, error) {
	raw, err := s.Store.Get(ctx, sessionKey(buyerUID, nick))
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return "", fmt.Errorf("decode session for %s: %w", buyerUID, err)
	}
	return id, nil
}

// Put stores id and restarts the TTL. An empty id is ignored.
func (s *SessionCache) Put(ctx context.Context, buyerUID, nick, id string) error {
	if id == "" {
		return nil
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.Store.SetEx(ctx, sessionKey(buyerUID, nick), string(raw), s.TTL)
}
