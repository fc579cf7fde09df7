package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/kv"
)

// DedupGate admits each inbound event at most once per retention window,
// keyed by buyerUid|loginId|receivedAt.
type DedupGate struct {
	Store kv.Store
	TTL   time.Duration
}

// NewDedupGate returns a gate with the given retention.
func NewDedupGate(store kv.Store, ttl time.Duration) *DedupGate {
	return &DedupGate{Store: store, TTL: ttl}
}

// Admit reports whether ev is seen for the first time. The decision is a
// single set-if-absent on the store, so the poller and the push endpoint can
// race. A store failure admits the event.
func (g *DedupGate) Admit(ctx context.Context, ev domain.InboundEvent) bool {
	tr := otel.Tracer("services/DedupGate")
	ctx, span := tr.Start(ctx, "Admit",
		trace.WithAttributes(attribute.String("message.id", ev.MessageID)),
	)
	defer span.End()

	key := ev.DedupKey()
	ok, err := g.Store.SetNX(ctx, key, "1", g.TTL)
	if err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("dedup_key", key).Msg("dedup store failed, admitting event")
		span.RecordError(err)
		return true
	}
	span.SetAttributes(attribute.Bool("dedup.admitted", ok))
	if !ok {
		loggerFrom(ctx).Info().Str("dedup_key", key).Msg("duplicate event dropped")
	}
	return ok
}
