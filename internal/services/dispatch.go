package services

import (
	"context"
	"fmt"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/observability"
	"github.com/tbourn/go-chat-intake/internal/repo"
)

// escalate hands the conversation to a human agent: courtesy message,
// transfer, finalize, handoff hold, audit row. Test users only get the
// tracking step.
func (c *Coordinator) escalate(ctx context.Context, ev domain.InboundEvent, prep prepared) error {
	lg := loggerFrom(ctx)
	d := prep.Decision
	observability.EscalationsTotal.WithLabelValues(d.Reason).Inc()
	lg.Info().Str("decision", d.String()).Msg("transferring to a human agent")

	if c.Rules.IsTestUser(ev.BuyerUID, ev.Nickname) {
		lg.Info().Msg("test user, transfer suppressed")
		return c.Tracker.Advance(ctx, ev.MessageID, domain.StepPlatformCall, "suppressed")
	}

	if err := c.Tracker.Advance(ctx, ev.MessageID, domain.StepPlatformCall, stepValue(domain.StepPlatformCall)); err != nil {
		return err
	}
	if c.Transfer.Message != "" {
		if err := c.send(ctx, ev, c.Transfer.Message); err != nil {
			return err
		}
	}
	if err := c.transfer(ctx, ev); err != nil {
		return err
	}
	if err := c.Tracker.Finalize(ctx, ev.MessageID); err != nil {
		return err
	}

	if c.Handoff != nil {
		hctx, cancel := c.bounded(ctx)
		if err := c.Handoff.Mark(hctx, ev.BuyerUID); err != nil {
			lg.Warn().Err(err).Msg("could not set handoff marker")
		}
		cancel()
	}

	c.audit(ctx, &domain.AIMessageRecord{
		UserNickname:     ev.Nickname,
		BuyerUID:         ev.BuyerUID,
		Message:          c.Transfer.Message,
		ForwardedToAgent: true,
		ForwardReason:    d.String(),
		ProductType:      prep.ProductType,
		PlatformMsgID:    ev.MessageID,
		EngineInput:      prep.Query,
		DataType:         ev.Kind.String(),
		TraceID:          ev.TraceID,
	})
	return nil
}

func (c *Coordinator) transfer(ctx context.Context, ev domain.InboundEvent) error {
	if c.Transfer.Target == "" {
		loggerFrom(ctx).Warn().Msg("no transfer target configured, buyer left in queue")
		return nil
	}
	tctx, cancel := c.bounded(ctx)
	defer cancel()
	var err error
	if c.Transfer.Mode == TransferByNick {
		err = c.Dispatch.TransferToNick(tctx, ev.LoginID, ev.Nickname, c.Transfer.Target)
	} else {
		err = c.Dispatch.TransferToGroup(tctx, ev.LoginID, ev.Nickname, c.Transfer.Target)
	}
	if err != nil {
		return fmt.Errorf("transfer %s: %w", ev.Nickname, err)
	}
	return nil
}

// reply answers automatically: emoticons are echoed, everything else goes
// through the dialogue engine and the reply filters.
func (c *Coordinator) reply(ctx context.Context, ev domain.InboundEvent, prep prepared) error {
	lg := loggerFrom(ctx)

	var answer string
	var engineID string
	if ev.Kind == domain.KindText && c.Rules.IsEmoticon(ev.Body) {
		answer = ev.Body
	} else {
		if c.Dialogue == nil {
			lg.Warn().Msg("no dialogue engine configured, not replying")
			return nil
		}
		if err := c.Tracker.Advance(ctx, ev.MessageID, domain.StepEngineCall, stepValue(domain.StepEngineCall)); err != nil {
			return err
		}
		res, err := c.converse(ctx, ev, prep)
		if err != nil {
			return err
		}
		if err := c.Tracker.Advance(ctx, ev.MessageID, domain.StepEngineCallComplete, stepValue(domain.StepEngineCallComplete)); err != nil {
			return err
		}
		answer, engineID = res.Answer, res.MessageID
	}

	text, ok := c.Rules.PostProcessReply(answer)
	if !ok || text == "" {
		lg.Info().Msg("reply suppressed by filters")
		return nil
	}

	if err := c.Tracker.Advance(ctx, ev.MessageID, domain.StepPlatformCall, stepValue(domain.StepPlatformCall)); err != nil {
		return err
	}
	if err := c.send(ctx, ev, text); err != nil {
		return err
	}
	if err := c.Tracker.Finalize(ctx, ev.MessageID); err != nil {
		return err
	}

	if !c.Rules.IsTestUser(ev.BuyerUID, ev.Nickname) {
		c.audit(ctx, &domain.AIMessageRecord{
			UserNickname:  ev.Nickname,
			BuyerUID:      ev.BuyerUID,
			Message:       text,
			ProductType:   prep.ProductType,
			PlatformMsgID: ev.MessageID,
			EngineID:      engineID,
			EngineInput:   prep.Query,
			DataType:      ev.Kind.String(),
			TraceID:       ev.TraceID,
		})
	}
	return nil
}

// converse calls the engine with the cached session and stores the session
// it returns.
func (c *Coordinator) converse(ctx context.Context, ev domain.InboundEvent, prep prepared) (domain.ConverseResult, error) {
	lg := loggerFrom(ctx)

	var conv string
	if c.Sessions != nil {
		sctx, cancel := c.bounded(ctx)
		id, err := c.Sessions.Get(sctx, ev.BuyerUID, ev.Nickname)
		cancel()
		if err != nil {
			lg.Warn().Err(err).Msg("session lookup failed, starting a new conversation")
		}
		conv = id
	}

	ectx, cancel := c.bounded(ctx)
	res, err := c.Dialogue.Converse(ectx, domain.ConverseRequest{
		Query:          prep.Query,
		User:           ev.BuyerUID,
		ConversationID: conv,
		ImageURLs:      prep.ImageURLs,
	})
	cancel()
	if err != nil {
		return res, fmt.Errorf("dialogue engine: %w", err)
	}

	if c.Sessions != nil && res.ConversationID != "" {
		sctx, cancel := c.bounded(ctx)
		if err := c.Sessions.Put(sctx, ev.BuyerUID, ev.Nickname, res.ConversationID); err != nil {
			lg.Warn().Err(err).Msg("could not cache session")
		}
		cancel()
	}
	return res, nil
}

func (c *Coordinator) send(ctx context.Context, ev domain.InboundEvent, text string) error {
	sctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.Dispatch.SendText(sctx, ev.LoginID, ev.Nickname, text); err != nil {
		return fmt.Errorf("send to %s: %w", ev.Nickname, err)
	}
	return nil
}

// audit appends an audit row. Failures are logged; the message has already
// been delivered.
func (c *Coordinator) audit(ctx context.Context, rec *domain.AIMessageRecord) {
	if c.DB == nil {
		return
	}
	if err := repo.CreateRecord(ctx, c.DB, rec); err != nil {
		loggerFrom(ctx).Error().Err(err).Msg("audit record not written")
	}
}
