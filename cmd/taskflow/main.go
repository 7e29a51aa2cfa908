package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/taskflow-io/taskflow/adapter/cli"
	"github.com/taskflow-io/taskflow/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.SetLogger(logger)
	cli.ExecuteContext(ctx)
}
