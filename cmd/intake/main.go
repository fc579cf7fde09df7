// Command intake runs the customer-chat intake service: it polls (or is
// pushed) buyer messages from the chat platform, routes them through the
// rule engine and the dialogue engine, and dispatches replies or transfers.
//
// @title       Chat Intake API
// @version     1.0
// @description Inbound customer-chat intake: push endpoint, tracking and inventory views.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-chat-intake/docs"
	"github.com/tbourn/go-chat-intake/internal/clients"
	"github.com/tbourn/go-chat-intake/internal/config"
	httpapi "github.com/tbourn/go-chat-intake/internal/http"
	"github.com/tbourn/go-chat-intake/internal/http/handlers"
	"github.com/tbourn/go-chat-intake/internal/kv"
	"github.com/tbourn/go-chat-intake/internal/observability"
	"github.com/tbourn/go-chat-intake/internal/repo"
	"github.com/tbourn/go-chat-intake/internal/rules"
	"github.com/tbourn/go-chat-intake/internal/scheduler"
	"github.com/tbourn/go-chat-intake/internal/services"
	"github.com/tbourn/go-chat-intake/internal/sysutil"
)

var version = "dev"

const (
	shutdownGrace = 15 * time.Second
	purgeInterval = time.Minute
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.ConfigureLogging(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("intake stopped")
	}
	log.Info().Msg("intake stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DBDSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	store, closeStore, err := openStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	engine, err := rules.Load(cfg.RulesPath, rules.WithTestUsers(cfg.TestUserIDs...))
	if err != nil {
		return err
	}

	coord := newCoordinator(cfg, db, store, engine)
	h := handlers.New(coord, coord.Tracker, coord.Catalog, store, db)

	r := gin.New()
	httpapi.RegisterRoutes(r, h, cfg)
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if cfg.Pipeline.PollEnabled {
		g.Go(func() error {
			return scheduler.Every(gctx, "tick", cfg.Pipeline.PollInterval, coord.Tick)
		})
	}
	if sqlStore, ok := store.(*kv.SQLStore); ok {
		g.Go(func() error {
			return scheduler.Every(gctx, "kv_purge", purgeInterval, func(ctx context.Context) {
				if n, err := sqlStore.PurgeExpired(ctx); err != nil {
					log.Warn().Err(err).Msg("kv purge failed")
				} else if n > 0 {
					log.Debug().Int64("removed", n).Msg("kv purge")
				}
			})
		})
	}
	return g.Wait()
}

// openStore returns the store for the pipeline's short-lived state and a
// closer for it.
func openStore(ctx context.Context, cfg config.Config, db *gorm.DB) (kv.Store, func(), error) {
	if cfg.KVBackend == "sql" {
		return kv.NewSQLStore(db), func() {}, nil
	}
	dctx, cancel := context.WithTimeout(ctx, cfg.Pipeline.CallTimeout)
	defer cancel()
	store, client, err := kv.DialRedis(dctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}

func newCoordinator(cfg config.Config, db *gorm.DB, store kv.Store, engine *rules.Engine) *services.Coordinator {
	p := cfg.Pipeline
	activity := services.NewActivityTracker(store, p.ActivityTTL)
	platform := clients.NewSainiu(cfg.Platform.BaseURL, cfg.Platform.APIKey, p.CallTimeout)

	var vision services.Vision = clients.StaticVision{}
	if cfg.VisionBaseURL != "" {
		vision = clients.NewVision(cfg.VisionBaseURL, p.CallTimeout)
	}

	return &services.Coordinator{
		Dedup:    services.NewDedupGate(store, p.DedupTTL),
		Activity: activity,
		Stager:   services.NewBurstStager(store, activity, p.BurstPolicy, p.BurstPayloadTTL),
		Tracker:  services.NewProcessTracker(db),
		Sessions: services.NewSessionCache(store, p.SessionTTL),
		Handoff:  services.NewHandoffMarker(store, p.HandoffTTL),
		Catalog:  services.NewCatalog(db, engine),
		Rules:    engine,
		DB:       db,
		Source:   platform,
		Vision:   vision,
		Dialogue: clients.NewDify(cfg.Engine.BaseURL, cfg.Engine.AppKey, cfg.Engine.ResponseMode, p.CallTimeout),
		Dispatch: platform,
		Transfer: services.TransferSettings{
			Mode:    cfg.Platform.TransferMode,
			Target:  cfg.Platform.TransferTarget,
			Message: cfg.Platform.TransferMessage,
		},
		CallTimeout: p.CallTimeout,
	}
}
