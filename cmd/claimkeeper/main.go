package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/claimkeeper/internal/client/cli"
	"github.com/dmitrijs2005/claimkeeper/internal/client/config"
	"github.com/dmitrijs2005/claimkeeper/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
