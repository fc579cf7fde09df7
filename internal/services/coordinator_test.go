package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/observability"
	"github.com/tbourn/go-chat-intake/internal/repo"
)

func (r *rig) tracking(t *testing.T, id string) *domain.ProcessTracking {
	t.Helper()
	rec, err := repo.GetTracking(context.Background(), r.db, id)
	if err != nil {
		t.Fatalf("tracking %s: %v", id, err)
	}
	return rec
}

func (r *rig) audits(t *testing.T, id string) []domain.AIMessageRecord {
	t.Helper()
	recs, err := repo.RecordsByPlatformMessage(context.Background(), r.db, id)
	if err != nil {
		t.Fatalf("audit %s: %v", id, err)
	}
	return recs
}

func TestCoordinator_TextBurstFlushesOnce(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	if out := r.c.Ingest(ctx, event("m1", domain.KindText, "在吗"), SourcePush); out != observability.OutcomeBuffered {
		t.Fatalf("m1 outcome = %s", out)
	}
	r.mr.FastForward(5 * time.Second)
	if out := r.c.Ingest(ctx, event("m2", domain.KindText, "这个有货吗"), SourcePoll); out != observability.OutcomeBuffered {
		t.Fatalf("m2 outcome = %s", out)
	}

	r.c.Tick(ctx)
	if n := len(r.dialogue.Calls()); n != 0 {
		t.Fatalf("engine called during the burst: %d", n)
	}

	before := testutil.ToFloat64(observability.BurstsFlushed)
	r.mr.FastForward(21 * time.Second)
	r.c.Tick(ctx)
	r.c.Tick(ctx)

	calls := r.dialogue.Calls()
	if len(calls) != 1 || calls[0].Query != "这个有货吗" || calls[0].User != "buyer-1" {
		t.Fatalf("expected one engine call for the latest message, got %+v", calls)
	}
	if got := testutil.ToFloat64(observability.BurstsFlushed) - before; got != 1 {
		t.Fatalf("bursts flushed = %v", got)
	}

	ops := r.dispatch.Ops()
	if len(ops) != 1 || ops[0].Op != "send" || ops[0].Arg != "您好。请稍等。" || ops[0].Seller != "shop:agent" || ops[0].Buyer != "nick-1" {
		t.Fatalf("unexpected dispatch: %+v", ops)
	}

	rec := r.tracking(t, "m2")
	if rec.IsFinished != 1 || rec.EngineCall != "3" || rec.EngineCallComplete != "4" || rec.PlatformCall != "5" {
		t.Fatalf("tracking not finished: %+v", rec)
	}
	if _, err := repo.GetTracking(ctx, r.db, "m1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("buffered messages other than the representative are not tracked, got %v", err)
	}

	if conv, _ := r.c.Sessions.Get(ctx, "buyer-1", "nick-1"); conv != "conv-1" {
		t.Fatalf("session not cached: %q", conv)
	}
	r.mr.FastForward(21 * time.Second)
	_ = r.c.Ingest(ctx, event("m3", domain.KindText, "还在吗"), SourcePush)
	r.mr.FastForward(21 * time.Second)
	r.c.Tick(ctx)
	if calls := r.dialogue.Calls(); len(calls) != 2 || calls[1].ConversationID != "conv-1" {
		t.Fatalf("second burst must reuse the session, got %+v", calls)
	}

	if a := r.audits(t, "m2"); len(a) != 1 || a[0].ForwardedToAgent || a[0].EngineID != "dify-1" || a[0].Message != "您好。请稍等。" {
		t.Fatalf("audit = %+v", a)
	}
}

func TestCoordinator_DuplicateDropped(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	ev := event("m1", domain.KindOther, "hi")

	before := testutil.ToFloat64(observability.EventsTotal.WithLabelValues(SourcePush, observability.OutcomeDuplicate))
	if out := r.c.Ingest(ctx, ev, SourcePoll); out != observability.OutcomeProcessed {
		t.Fatalf("first outcome = %s", out)
	}
	if out := r.c.Ingest(ctx, ev, SourcePush); out != observability.OutcomeDuplicate {
		t.Fatalf("second outcome = %s", out)
	}
	if got := testutil.ToFloat64(observability.EventsTotal.WithLabelValues(SourcePush, observability.OutcomeDuplicate)) - before; got != 1 {
		t.Fatalf("duplicate counter delta = %v", got)
	}
	if n := len(r.dialogue.Calls()); n != 1 {
		t.Fatalf("engine calls = %d", n)
	}
}

func TestCoordinator_Filters(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	notUser := event("m1", domain.KindText, "hi")
	notUser.SourceCode = "CHAT_SEND_MSG"
	system := event("m2", domain.KindText, "客服小王将为您服务")
	handoff := event("m3", domain.KindText, "会话已转交给wsy")
	noID := event("", domain.KindText, "hi")
	noBuyer := event("m4", domain.KindText, "hi")
	noBuyer.BuyerUID = ""

	cases := []struct {
		ev   domain.InboundEvent
		want string
	}{
		{notUser, observability.OutcomeFiltered},
		{system, observability.OutcomeFiltered},
		{handoff, observability.OutcomeFiltered},
		{noID, observability.OutcomeInvalid},
		{noBuyer, observability.OutcomeInvalid},
	}
	for _, tc := range cases {
		if got := r.c.Ingest(ctx, tc.ev, SourcePush); got != tc.want {
			t.Fatalf("Ingest(%q) = %s, want %s", tc.ev.Body, got, tc.want)
		}
	}
	if members, _ := r.c.Activity.Store.SMembers(ctx, watchedSet); len(members) != 0 {
		t.Fatalf("filtered events must not start a burst: %v", members)
	}
}

func TestCheckIdentity(t *testing.T) {
	if err := checkIdentity(event("m1", domain.KindText, "hi")); err != nil {
		t.Fatalf("complete event rejected: %v", err)
	}
	noBuyer := event("m2", domain.KindText, "hi")
	noBuyer.BuyerUID = ""
	for _, ev := range []domain.InboundEvent{event("", domain.KindText, "hi"), noBuyer} {
		if err := checkIdentity(ev); !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("checkIdentity(%+v) = %v, want ErrInvalidEvent", ev, err)
		}
	}
}

func TestCoordinator_TextKeywordEscalates(t *testing.T) {
	r := newRig(t)
	r.c.Stager = nil
	ctx := context.Background()

	if out := r.c.Ingest(ctx, event("m1", domain.KindText, "我要退货"), SourcePush); out != observability.OutcomeProcessed {
		t.Fatalf("outcome = %s", out)
	}
	if n := len(r.dialogue.Calls()); n != 0 {
		t.Fatalf("escalations must not call the engine")
	}
	ops := r.dispatch.Ops()
	if len(ops) != 2 || ops[0].Op != "send" || ops[0].Arg != r.c.Transfer.Message || ops[1].Op != "group" || ops[1].Arg != "售后组" {
		t.Fatalf("unexpected dispatch: %+v", ops)
	}
	if !r.mr.Exists("ai_zj_buyer-1") {
		t.Fatalf("handoff marker not set")
	}
	if rec := r.tracking(t, "m1"); rec.IsFinished != 1 || rec.EngineCall != "" {
		t.Fatalf("tracking = %+v", rec)
	}
	a := r.audits(t, "m1")
	if len(a) != 1 || !a[0].ForwardedToAgent || a[0].ForwardReason != "text_keyword:退货" {
		t.Fatalf("audit = %+v", a)
	}

	// the buyer is now with a human: the next message is tracked only
	if out := r.c.Ingest(ctx, event("m2", domain.KindText, "你好"), SourcePush); out != observability.OutcomeProcessed {
		t.Fatalf("outcome = %s", out)
	}
	if rec := r.tracking(t, "m2"); rec.PreprocessInfo != "handoff" || rec.IsFinished != 0 {
		t.Fatalf("held message tracking = %+v", rec)
	}
	if len(r.dispatch.Ops()) != 2 || len(r.dialogue.Calls()) != 0 {
		t.Fatalf("held buyer must not be answered")
	}
}

func TestCoordinator_ExemptPhraseIsAnswered(t *testing.T) {
	r := newRig(t)
	r.c.Stager = nil
	_ = r.c.Ingest(context.Background(), event("m1", domain.KindText, "请问怎么咨询人工客服"), SourcePush)
	if n := len(r.dialogue.Calls()); n != 1 {
		t.Fatalf("exempt phrase must go to the engine, calls = %d", n)
	}
}

func TestCoordinator_TransferByNick(t *testing.T) {
	r := newRig(t)
	r.c.Transfer = TransferSettings{Mode: TransferByNick, Target: "agent-7"}
	_ = r.c.Ingest(context.Background(), event("m1", domain.KindVideo, "v.mp4"), SourcePush)
	ops := r.dispatch.Ops()
	if len(ops) != 1 || ops[0].Op != "nick" || ops[0].Arg != "agent-7" {
		t.Fatalf("unexpected dispatch: %+v", ops)
	}
}

func TestCoordinator_VideoAlwaysEscalates(t *testing.T) {
	r := newRig(t)
	before := testutil.ToFloat64(observability.EscalationsTotal.WithLabelValues("video"))
	_ = r.c.Ingest(context.Background(), event("m1", domain.KindVideo, "https://v.example/1.mp4"), SourcePush)

	if n := len(r.dialogue.Calls()); n != 0 {
		t.Fatalf("video must not reach the engine")
	}
	if got := testutil.ToFloat64(observability.EscalationsTotal.WithLabelValues("video")) - before; got != 1 {
		t.Fatalf("video escalations delta = %v", got)
	}
	if a := r.audits(t, "m1"); len(a) != 1 || a[0].ForwardReason != "video" || a[0].EngineInput != videoQuery {
		t.Fatalf("audit = %+v", a)
	}
}

func TestCoordinator_ImageRouting(t *testing.T) {
	r := newRig(t)
	seedCatalog(t, r.c.Catalog)
	ctx := context.Background()

	r.vision.types["https://img/a.jpg"] = "Compressor"
	r.vision.models["https://img/a.jpg"] = "DZ90X10"
	_ = r.c.Ingest(ctx, event("m1", domain.KindImage, "https://img/a.jpg"), SourcePush)

	calls := r.dialogue.Calls()
	if len(calls) != 1 {
		t.Fatalf("in-stock image with a link must be answered, calls = %d", len(calls))
	}
	if len(calls[0].ImageURLs) != 1 || calls[0].ImageURLs[0] != "https://img/a.jpg" {
		t.Fatalf("image not forwarded: %+v", calls[0])
	}
	if !strings.HasPrefix(calls[0].Query, "咨询这个[") {
		t.Fatalf("combined query expected, got %q", calls[0].Query)
	}

	r.vision.types["https://img/b.jpg"] = "InverterBoard"
	r.vision.models["https://img/b.jpg"] = "DZ90X1D"
	ev := event("m2", domain.KindImage, "https://img/a.jpg;https://img/b.jpg")
	ev.BuyerUID = "buyer-2"
	_ = r.c.Ingest(ctx, ev, SourcePush)
	if a := r.audits(t, "m2"); len(a) != 1 || a[0].ForwardReason != "image_transfer_type:InverterBoard" || a[0].ProductType != "Compressor;InverterBoard" {
		t.Fatalf("audit = %+v", a)
	}
}

func TestCoordinator_UnreadableTransferTypeImageEscalates(t *testing.T) {
	r := newRig(t)
	r.vision.types["https://img/board.jpg"] = "变频板"
	r.vision.models["https://img/board.jpg"] = ""

	if out := r.c.Ingest(context.Background(), event("m1", domain.KindImage, "https://img/board.jpg"), SourcePush); out != observability.OutcomeProcessed {
		t.Fatalf("outcome = %s", out)
	}
	if n := len(r.dialogue.Calls()); n != 0 {
		t.Fatalf("engine called %d times for a transfer-type image", n)
	}
	ops := r.dispatch.Ops()
	if len(ops) != 2 || ops[1].Op != "group" || ops[1].Arg != "售后组" {
		t.Fatalf("unexpected dispatch: %+v", ops)
	}
	if a := r.audits(t, "m1"); len(a) != 1 || a[0].ForwardReason != "image_transfer_type:InverterBoard" {
		t.Fatalf("audit = %+v", a)
	}
}

func TestCoordinator_VisionFailureAbandons(t *testing.T) {
	r := newRig(t)
	r.vision.err = errors.New("model offline")
	if out := r.c.Ingest(context.Background(), event("m1", domain.KindImage, "x.jpg"), SourcePush); out != observability.OutcomeFailed {
		t.Fatalf("outcome = %s", out)
	}
	if rec := r.tracking(t, "m1"); rec.LastStep != 1 {
		t.Fatalf("tracking must stay at fetch, got %+v", rec)
	}
}

func TestCoordinator_TestUserTransferSuppressed(t *testing.T) {
	r := newRig(t)
	ev := event("m1", domain.KindVideo, "v.mp4")
	ev.BuyerUID = "tb50918310"
	_ = r.c.Ingest(context.Background(), ev, SourcePush)

	if ops := r.dispatch.Ops(); len(ops) != 0 {
		t.Fatalf("test users must not be transferred: %+v", ops)
	}
	if rec := r.tracking(t, "m1"); rec.PlatformCall != "suppressed" || rec.IsFinished != 0 {
		t.Fatalf("tracking = %+v", rec)
	}
	if a := r.audits(t, "m1"); len(a) != 0 {
		t.Fatalf("test users are not audited: %+v", a)
	}
}

func TestCoordinator_EngineFailureLeavesStep(t *testing.T) {
	r := newRig(t)
	r.dialogue.err = errors.New("timeout")
	if out := r.c.Ingest(context.Background(), event("m1", domain.KindOther, "?"), SourcePush); out != observability.OutcomeFailed {
		t.Fatalf("outcome = %s", out)
	}
	if rec := r.tracking(t, "m1"); rec.LastStep != 3 || rec.IsFinished != 0 {
		t.Fatalf("tracking must stop at engine call, got %+v", rec)
	}
	if len(r.dispatch.Ops()) != 0 {
		t.Fatalf("nothing must be sent")
	}
}

func TestCoordinator_PanicIsContained(t *testing.T) {
	r := newRig(t)
	r.dialogue.panicMsg = "boom"
	if out := r.c.Ingest(context.Background(), event("m1", domain.KindOther, "?"), SourcePush); out != observability.OutcomeFailed {
		t.Fatalf("outcome = %s", out)
	}

	r.dialogue.panicMsg = ""
	if out := r.c.Ingest(context.Background(), event("m2", domain.KindOther, "?"), SourcePush); out != observability.OutcomeProcessed {
		t.Fatalf("next message must be unaffected, got %s", out)
	}
}

func TestCoordinator_EmoticonEchoed(t *testing.T) {
	r := newRig(t)
	r.c.Stager = nil
	_ = r.c.Ingest(context.Background(), event("m1", domain.KindText, "/:^_^"), SourcePush)
	if len(r.dialogue.Calls()) != 0 {
		t.Fatalf("emoticons must not reach the engine")
	}
	if ops := r.dispatch.Ops(); len(ops) != 1 || ops[0].Arg != "/:^_^" {
		t.Fatalf("dispatch = %+v", ops)
	}
}

func TestCoordinator_SecurityNoticeNotSent(t *testing.T) {
	r := newRig(t)
	r.dialogue.answer = r.c.Rules.Tables().SecurityNotices[0]
	_ = r.c.Ingest(context.Background(), event("m1", domain.KindOther, "?"), SourcePush)
	if len(r.dispatch.Ops()) != 0 {
		t.Fatalf("safety notices must be dropped")
	}
	if rec := r.tracking(t, "m1"); rec.LastStep != 4 {
		t.Fatalf("tracking = %+v", rec)
	}
}

func TestCoordinator_TickPollsSource(t *testing.T) {
	r := newRig(t)
	r.source.events = []domain.InboundEvent{event("m1", domain.KindLink, "https://item.taobao.com/item.htm?id=9")}
	r.c.Tick(context.Background())

	calls := r.dialogue.Calls()
	if len(calls) != 1 || calls[0].Query != "咨询这个 9\n[未查询到对应商品信息]" {
		t.Fatalf("link query = %+v", calls)
	}

	r.source.err = errors.New("platform down")
	r.c.Tick(context.Background()) // logged, not fatal
}
