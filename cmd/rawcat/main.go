package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"raw-catalog/internal/cli"
	"raw-catalog/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.RootCommand(cli.NewApp()).ExecuteContext(ctx); err != nil {
		logging.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
