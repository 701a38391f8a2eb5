package main

import (
	"context"
	"os"

	"github.com/cuppie/cuppie-auth/internal/server"
	"github.com/cuppie/cuppie-auth/internal/server/config"
)

func main() {
	logger := server.NewLogger()
	cfg := config.LoadConfig()

	ctx := context.Background()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}
