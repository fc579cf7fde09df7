package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-intake/internal/domain"
	"github.com/tbourn/go-chat-intake/internal/kv"
	"github.com/tbourn/go-chat-intake/internal/rules"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:intakesvc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.ProcessTracking{}, &domain.AIMessageRecord{},
		&domain.Product{}, &domain.ProductLink{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newTestStore(t *testing.T) (kv.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return kv.NewRedisStore(rdb), mr
}

// brokenStore fails every call.
type brokenStore struct{ kv.Store }

var errStoreDown = errors.New("store down")

func (brokenStore) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, errStoreDown
}
func (brokenStore) SetEx(context.Context, string, string, time.Duration) error { return errStoreDown }
func (brokenStore) SMembers(context.Context, string) ([]string, error)       { return nil, errStoreDown }

type fakeSource struct {
	mu     sync.Mutex
	events []domain.InboundEvent
	err    error
}

func (f *fakeSource) NextEvent(context.Context) (*domain.InboundEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.events) == 0 {
		return nil, nil
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return &ev, nil
}

type fakeVision struct {
	types  map[string]string
	models map[string]string
	err    error
}

func (f *fakeVision) Classify(_ context.Context, url string) (string, error) {
	return f.types[url], f.err
}

func (f *fakeVision) RecognizeModel(_ context.Context, url string) (string, error) {
	return f.models[url], f.err
}

type fakeDialogue struct {
	mu       sync.Mutex
	calls    []domain.ConverseRequest
	answer   string
	conv     string
	err      error
	panicMsg string
}

func (f *fakeDialogue) Converse(_ context.Context, req domain.ConverseRequest) (domain.ConverseResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return domain.ConverseResult{}, f.err
	}
	return domain.ConverseResult{Answer: f.answer, ConversationID: f.conv, MessageID: "dify-1"}, nil
}

func (f *fakeDialogue) Calls() []domain.ConverseRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ConverseRequest(nil), f.calls...)
}

type dispatched struct {
	Op, Seller, Buyer, Arg string
}

type fakeDispatcher struct {
	mu   sync.Mutex
	ops  []dispatched
	fail error
}

func (f *fakeDispatcher) record(op, seller, buyer, arg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, dispatched{op, seller, buyer, arg})
	return f.fail
}

func (f *fakeDispatcher) SendText(_ context.Context, seller, buyer, text string) error {
	return f.record("send", seller, buyer, text)
}

func (f *fakeDispatcher) TransferToGroup(_ context.Context, seller, buyer, group string) error {
	return f.record("group", seller, buyer, group)
}

func (f *fakeDispatcher) TransferToNick(_ context.Context, seller, buyer, target string) error {
	return f.record("nick", seller, buyer, target)
}

func (f *fakeDispatcher) Ops() []dispatched {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatched(nil), f.ops...)
}

// rig is a coordinator wired to fakes, miniredis and in-memory sqlite.
type rig struct {
	c        *Coordinator
	db       *gorm.DB
	mr       *miniredis.Miniredis
	source   *fakeSource
	vision   *fakeVision
	dialogue *fakeDialogue
	dispatch *fakeDispatcher
}

func newRig(t *testing.T) *rig {
	t.Helper()
	db := newTestDB(t)
	store, mr := newTestStore(t)
	eng := rules.Default()

	activity := NewActivityTracker(store, 20*time.Second)
	r := &rig{
		db:       db,
		mr:       mr,
		source:   &fakeSource{},
		vision:   &fakeVision{types: map[string]string{}, models: map[string]string{}},
		dialogue: &fakeDialogue{answer: "您好。您好。请稍等。", conv: "conv-1"},
		dispatch: &fakeDispatcher{},
	}
	r.c = &Coordinator{
		Dedup:    NewDedupGate(store, 24*time.Hour),
		Activity: activity,
		Stager:   NewBurstStager(store, activity, BurstLatest, 10*time.Minute),
		Tracker:  NewProcessTracker(db),
		Sessions: NewSessionCache(store, 24*time.Hour),
		Handoff:  NewHandoffMarker(store, 200*time.Second),
		Catalog:  NewCatalog(db, eng),
		Rules:    eng,
		DB:       db,
		Source:   r.source,
		Vision:   r.vision,
		Dialogue: r.dialogue,
		Dispatch: r.dispatch,
		Transfer: TransferSettings{
			Mode:    TransferByGroup,
			Target:  "售后组",
			Message: "亲爱的，稍等给您转专席客服",
		},
		CallTimeout: 2 * time.Second,
	}
	return r
}

func event(id string, kind domain.MessageKind, body string) domain.InboundEvent {
	return domain.InboundEvent{
		Kind:       kind,
		MessageID:  id,
		BuyerUID:   "buyer-1",
		LoginID:    "shop:agent",
		Nickname:   "nick-1",
		Body:       body,
		ReceivedAt: domain.RawTime("2025-06-01 10:00:00." + id),
		SourceCode: domain.SourceUserReceive,
	}
}
