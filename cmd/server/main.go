package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/tier-auction/internal/archive"
	"github.com/DoyleJ11/tier-auction/internal/auth"
	"github.com/DoyleJ11/tier-auction/internal/config"
	"github.com/DoyleJ11/tier-auction/internal/engine"
	"github.com/DoyleJ11/tier-auction/internal/httpapi"
	"github.com/DoyleJ11/tier-auction/internal/lobby"
	"github.com/DoyleJ11/tier-auction/internal/relay"
	"github.com/DoyleJ11/tier-auction/internal/roster"
	"github.com/DoyleJ11/tier-auction/internal/scheduler"
	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	r := roster.Default()
	if cfg.RosterFile != "" {
		if r, err = roster.Load(cfg.RosterFile); err != nil {
			return err
		}
	}
	log.Info("roster loaded",
		zap.Int("tiers", len(r.Tiers)),
		zap.Int("players", r.PlayerCount()),
		zap.Int("managers", len(r.Managers)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	g, ctx := errgroup.WithContext(ctx)

	var sinks []lobby.Sink
	if cfg.DatabaseURL != "" {
		db, dbErr := archive.Open(cfg.DatabaseURL)
		if dbErr != nil {
			return dbErr
		}
		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			return fmt.Errorf("database handle: %w", dbErr)
		}
		defer func() { err = multierr.Append(err, sqlDB.Close()) }()

		arc := archive.New(db, clock, log)
		sinks = append(sinks, arc)
		g.Go(func() error { return arc.Run(ctx) })
	}
	if cfg.NATSURL != "" {
		nc, natsErr := relay.Connect(cfg.NATSURL, log)
		if natsErr != nil {
			return natsErr
		}
		defer func() { err = multierr.Append(err, nc.Drain()) }()
		sinks = append(sinks, relay.New(nc, cfg.NATSSubject, log))
	}

	rules := engine.Rules{Prelude: cfg.Prelude, BidWindow: cfg.BidWindow}
	lb := lobby.NewLobby(ctx, engine.NewState(r, rules), lobby.Config{
		Clock:  clock,
		Logger: log.Named("lobby"),
		Sinks:  sinks,
	})

	sched := scheduler.New(clock, cfg.Tick, lb.Inbox(), log.Named("scheduler"))
	g.Go(func() error { return sched.Run(ctx) })

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Lobby:       lb,
			Resolver:    auth.NewResolver(r),
			Logger:      log.Named("ws"),
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "dev" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
