package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/app"
	"github.com/dharsanguruparan/EventDrop/internal/config"
	"github.com/dharsanguruparan/EventDrop/internal/logging"
	"github.com/dharsanguruparan/EventDrop/internal/repository"
)

// cliEnv is what a subcommand works against. It is built lazily so commands
// like migrate do not open storage they never use.
type cliEnv struct {
	cfg        *config.Config
	log        *zap.Logger
	store      repository.Store
	storage    *app.Storage
	closeStore func()
}

var logLevel string

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventdrop",
		Short: "EventDrop operator CLI",
		Long: `eventdrop manages events and their media outside the HTTP API. It reads the
same EVENTDROP_* environment (and .env file) as the server.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for diagnostics written to stderr")
	cmd.AddCommand(
		newEventCmd(),
		newIngestCmd(),
		newListCmd(),
		newExportCmd(),
		newMigrateCmd(),
	)
	return cmd
}

func loadRuntime(ctx context.Context, needStorage bool) (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(logging.Config{Level: logLevel, Format: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	store, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init metadata store: %w", err)
	}
	rt := &cliEnv{cfg: cfg, log: log, store: store, closeStore: closeStore}
	if needStorage {
		st, err := app.OpenStorage(ctx, cfg, log)
		if err != nil {
			closeStore()
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.storage = st
	}
	return rt, nil
}

func (rt *cliEnv) Close() {
	rt.closeStore()
	_ = rt.log.Sync()
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
