// Command server runs the EventDrop HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/api"
	"github.com/dharsanguruparan/EventDrop/internal/app"
	"github.com/dharsanguruparan/EventDrop/internal/auth"
	"github.com/dharsanguruparan/EventDrop/internal/config"
	"github.com/dharsanguruparan/EventDrop/internal/events"
	"github.com/dharsanguruparan/EventDrop/internal/export"
	"github.com/dharsanguruparan/EventDrop/internal/ingest"
	"github.com/dharsanguruparan/EventDrop/internal/logging"
	"github.com/dharsanguruparan/EventDrop/internal/queue"
	"github.com/dharsanguruparan/EventDrop/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	store, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init metadata store: %w", err)
	}
	defer closeStore()

	limits := ingest.Limits{MaxFiles: cfg.MaxFiles, MaxFileSize: cfg.MaxFileSize, WriteConcurrency: cfg.WriteConcurrency}
	var opts []ingest.Option
	if cfg.AuditEnabled() {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		opts = append(opts, ingest.WithAudit(queue.NewPublisher(client)))
		log.Info("storage audits enabled", zap.String("redis", cfg.RedisAddr))
	}

	srv := api.New(api.Deps{
		Config:   cfg,
		Store:    store,
		Backend:  st.Backend,
		Issuer:   st.Issuer,
		Media:    st.Media,
		Ingest:   ingest.New(st.Backend, store, limits, log, opts...),
		Exporter: export.New(st.Backend, log),
		Events:   events.New(store, log),
		Auth:     auth.New(cfg.JWTSecret, cfg.AdminTokenTTL),
		Logger:   log,
	})
	return server.New(cfg.Address, srv.Routes(), log).Serve(ctx)
}
