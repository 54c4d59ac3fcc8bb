package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/glimpse-dev/glimpse/cmd/glimpse/commands"
	"github.com/glimpse-dev/glimpse/pkg/server"
)

func main() {
	// Ctrl+C and SIGTERM cancel the context; the serve loop turns that
	// into a graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := commands.NewCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(server.ExitCode(err))
	}
}
