package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for EventsTotal.
const (
	OutcomeProcessed = "processed"
	OutcomeBuffered  = "buffered"
	OutcomeDuplicate = "duplicate"
	OutcomeFiltered  = "filtered"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

var (
	// EventsTotal counts inbound events by entry path (poll, push, flush)
	// and what happened to them.
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_events_total",
			Help: "Inbound chat events by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	// EscalationsTotal counts transfer-to-human decisions by reason.
	EscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_escalations_total",
			Help: "Transfer-to-human decisions by reason.",
		},
		[]string{"reason"},
	)

	// BurstsFlushed counts debounced bursts handed to processing.
	BurstsFlushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_bursts_flushed_total",
			Help: "Message bursts flushed after the silence window.",
		},
	)

	// TicksSkipped counts scheduler ticks dropped because the previous one
	// was still running.
	TicksSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_ticks_skipped_total",
			Help: "Scheduler ticks skipped due to overlap.",
		},
		[]string{"job"},
	)

	// ProcessDuration observes per-message processing time by message kind.
	ProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_process_duration_seconds",
			Help:    "Time spent processing one message.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(EventsTotal, EscalationsTotal, BurstsFlushed, TicksSkipped, ProcessDuration)
}
