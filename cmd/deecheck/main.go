package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YoshitsuguKoike/deecheck/internal/interface/cli"
)

func main() {
	// Ctrl-C stops dispatching new files; files in flight abort with system_timeout
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRoot().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
