package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/observability"
	"github.com/tbourn/go-chat-intake/internal/rules"
)

// Entry paths, used as the source label on metrics.
const (
	SourcePoll  = "poll"
	SourcePush  = "push"
	SourceFlush = "flush"
)

// Transfer modes.
const (
	TransferByGroup = "Group"
	TransferByNick  = "Nick"
)

// videoQuery replaces the body of video messages.
const videoQuery = "转接人工"

// TransferSettings controls how an escalated conversation is handed over.
type TransferSettings struct {
	Mode    string // Group|Nick
	Target  string // group name or agent nick
	Message string // sent to the buyer first; empty sends nothing
}

// Coordinator drives one message at a time from intake to dispatch. It is
// safe for concurrent use: the ticker and the push endpoint share it.
type Coordinator struct {
	Dedup    *DedupGate
	Activity *ActivityTracker
	Stager   *BurstStager // nil processes text immediately
	Tracker  *ProcessTracker
	Sessions *SessionCache
	Handoff  *HandoffMarker
	Catalog  *Catalog
	Rules    *rules.Engine
	DB       *gorm.DB // audit records

	Source   Source
	Vision   Vision
	Dialogue Dialogue
	Dispatch Dispatcher

	Transfer    TransferSettings
	CallTimeout time.Duration // bound on each store and collaborator call
}

// prepared is a message after routing: what to ask the engine and what the
// rules decided.
type prepared struct {
	Query       string
	ImageURLs   []string
	ProductType string
	Decision    rules.TransferDecision
}

// Tick runs one scheduler cycle: flush a silent burst if one is ready,
// otherwise pull one event from the source. Errors are logged, never returned,
// so one bad cycle does not stop the ticker.
func (c *Coordinator) Tick(ctx context.Context) {
	if c.Activity != nil {
		fctx, cancel := c.bounded(ctx)
		ev, err := c.Activity.PollSilentUser(fctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("silent-user scan failed")
		}
		if ev != nil {
			observability.BurstsFlushed.Inc()
			c.run(ctx, *ev, SourceFlush)
			return
		}
	}

	if c.Source == nil {
		return
	}
	sctx, cancel := c.bounded(ctx)
	ev, err := c.Source.NextEvent(sctx)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("poll failed")
		return
	}
	if ev == nil || ev.IsEmpty() {
		return
	}
	c.Ingest(ctx, *ev, SourcePoll)
}

// Ingest takes one event from the poller or the push endpoint through the
// dedup gate and the filters, then buffers text into the sender's burst and
// processes everything else right away. It returns the outcome label.
func (c *Coordinator) Ingest(ctx context.Context, ev domain.InboundEvent, source string) string {
	if err := checkIdentity(ev); err != nil {
		log.Info().Err(err).Str("source", source).Msg("dropping event")
		return c.count(source, observability.OutcomeInvalid)
	}

	dctx, cancel := c.bounded(ctx)
	admitted := c.Dedup.Admit(dctx, ev)
	cancel()
	if !admitted {
		return c.count(source, observability.OutcomeDuplicate)
	}

	if reason := c.filterReason(ev); reason != "" {
		log.Debug().Str("message_id", ev.MessageID).Str("reason", reason).Msg("event filtered")
		return c.count(source, observability.OutcomeFiltered)
	}

	if ev.Kind == domain.KindText && c.Stager != nil {
		sctx, cancel := c.bounded(ctx)
		err := c.Stager.Stage(sctx, ev)
		cancel()
		if err == nil {
			return c.count(source, observability.OutcomeBuffered)
		}
		log.Warn().Err(err).Str("message_id", ev.MessageID).Msg("staging failed, processing immediately")
	}
	return c.run(ctx, ev, source)
}

// checkIdentity returns ErrInvalidEvent when ev lacks a message id or buyer.
func checkIdentity(ev domain.InboundEvent) error {
	switch {
	case ev.MessageID == "":
		return fmt.Errorf("%w: missing message id", ErrInvalidEvent)
	case ev.BuyerUID == "":
		return fmt.Errorf("%w: message %s has no buyer uid", ErrInvalidEvent, ev.MessageID)
	}
	return nil
}

// filterReason returns why ev must not enter the pipeline, or "".
func (c *Coordinator) filterReason(ev domain.InboundEvent) string {
	if ev.SourceCode != domain.SourceUserReceive {
		return "not_user_message"
	}
	if c.Rules.IsSystemMessage(ev.Body) {
		return "system_message"
	}
	return ""
}

func (c *Coordinator) run(ctx context.Context, ev domain.InboundEvent, source string) string {
	start := time.Now()
	err := c.process(ctx, ev)
	observability.ProcessDuration.WithLabelValues(ev.Kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error().Err(err).
			Str("message_id", ev.MessageID).
			Str("buyer_uid", ev.BuyerUID).
			Str("source", source).
			Msg("message abandoned")
		return c.count(source, observability.OutcomeFailed)
	}
	return c.count(source, observability.OutcomeProcessed)
}

func (c *Coordinator) count(source, outcome string) string {
	observability.EventsTotal.WithLabelValues(source, outcome).Inc()
	return outcome
}

// process handles one admitted message. A failure leaves the tracking record
// at its last written step; panics are converted to errors.
func (c *Coordinator) process(ctx context.Context, ev domain.InboundEvent) (err error) {
	if ev.TraceID == "" {
		ev.TraceID = uuid.NewString()
	}
	lg := log.With().
		Str("trace_id", ev.TraceID).
		Str("message_id", ev.MessageID).
		Str("buyer_uid", ev.BuyerUID).
		Logger()
	ctx = lg.WithContext(ctx)

	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "process",
		trace.WithAttributes(
			attribute.String("message.id", ev.MessageID),
			attribute.String("message.kind", ev.Kind.String()),
			attribute.String("trace.id", ev.TraceID),
		),
	)
	defer func() {
		if r := recover(); r != nil {
			lg.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("panic while processing message")
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.Tracker.Create(ctx, ev.MessageID, ev.Kind); err != nil {
		return err
	}

	if c.Handoff != nil {
		hctx, cancel := c.bounded(ctx)
		held, herr := c.Handoff.Active(hctx, ev.BuyerUID)
		cancel()
		if herr != nil {
			lg.Warn().Err(herr).Msg("handoff check failed, continuing")
		}
		if held {
			lg.Info().Msg("buyer is with a human agent, not handling")
			return c.Tracker.Advance(ctx, ev.MessageID, domain.StepPreprocess, "handoff")
		}
	}

	prep, err := c.preprocess(ctx, ev)
	if err != nil {
		return err
	}
	if err := c.Tracker.Advance(ctx, ev.MessageID, domain.StepPreprocess, stepValue(domain.StepPreprocess)); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("decision", prep.Decision.String()))

	if prep.Decision.Escalate {
		return c.escalate(ctx, ev, prep)
	}
	return c.reply(ctx, ev, prep)
}

// preprocess routes ev by kind and evaluates the rules.
func (c *Coordinator) preprocess(ctx context.Context, ev domain.InboundEvent) (prepared, error) {
	switch ev.Kind {
	case domain.KindText:
		return prepared{Query: ev.Body, Decision: c.Rules.TextDecision(ev.Body)}, nil

	case domain.KindImage:
		urls := splitImageURLs(ev.Body)
		recs, err := c.recognize(ctx, urls)
		if err != nil {
			return prepared{}, err
		}
		items, err := c.Catalog.Items(ctx, recs)
		if err != nil {
			return prepared{}, err
		}
		types := make([]string, 0, len(items))
		for _, it := range items {
			types = append(types, it.Type)
		}
		return prepared{
			Query:       c.Catalog.CombinedQuery(items),
			ImageURLs:   urls,
			ProductType: strings.Join(types, ";"),
			Decision:    c.Rules.ImageDecision(items),
		}, nil

	case domain.KindVideo:
		return prepared{Query: videoQuery, Decision: rules.Escalate(rules.ReasonVideo, "")}, nil

	case domain.KindLink:
		q, ok, err := c.Catalog.LinkQuery(ctx, ev.Body)
		if err != nil {
			return prepared{}, err
		}
		if !ok {
			q = ev.Body
		}
		return prepared{Query: q, Decision: rules.Handle()}, nil

	default:
		return prepared{Query: ev.Body, Decision: rules.Handle()}, nil
	}
}

// recognize runs both vision collaborators over each image.
func (c *Coordinator) recognize(ctx context.Context, urls []string) ([]domain.Recognition, error) {
	if c.Vision == nil {
		return nil, nil
	}
	out := make([]domain.Recognition, 0, len(urls))
	for _, u := range urls {
		vctx, cancel := c.bounded(ctx)
		typ, err := c.Vision.Classify(vctx, u)
		if err == nil {
			var raw string
			raw, err = c.Vision.RecognizeModel(vctx, u)
			out = append(out, domain.Recognition{ImageURL: u, ProductType: typ, RawModel: raw})
		}
		cancel()
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", u, err)
		}
	}
	return out, nil
}

func (c *Coordinator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.CallTimeout)
}

// splitImageURLs accepts one or more image URLs separated by ';' or spaces.
func splitImageURLs(body string) []string {
	return strings.FieldsFunc(body, func(r rune) bool { return r == ';' || unicode.IsSpace(r) })
}

// stepValue is the marker written into a step column.
func stepValue(s domain.Step) string { return fmt.Sprintf("%d", int(s)) }
