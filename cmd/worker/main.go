// Command worker runs the asynq consumer that audits committed uploads.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/app"
	"github.com/dharsanguruparan/EventDrop/internal/config"
	"github.com/dharsanguruparan/EventDrop/internal/logging"
	"github.com/dharsanguruparan/EventDrop/internal/worker"
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

	if !cfg.AuditEnabled() {
		log.Fatal("EVENTDROP_REDIS_ADDR is required for the worker")
	}
	st, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("init storage", zap.Error(err))
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.AuditWorkers,
		Logger:      log.Named("asynq").Sugar(),
	})
	auditor := worker.NewAuditor(st.Backend, log)

	if err := srv.Start(auditor.Handler()); err != nil {
		log.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("worker started", zap.Int("concurrency", cfg.AuditWorkers))
	<-ctx.Done()
	srv.Shutdown()
}
