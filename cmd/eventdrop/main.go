// Command eventdrop is the operator CLI: create events, ingest files from
// disk, list uploads, export archives and run database migrations against the
// same storage and metadata configuration the server uses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "eventdrop: %v\n", err)
		os.Exit(1)
	}
}
