package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/stratum/cli"
)

func main() {
	// cancel the running export on interrupt; partial outputs are discarded
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := cli.Launch(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
