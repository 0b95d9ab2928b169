package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/securecloud/internal/server"
	"github.com/dmitrijs2005/securecloud/internal/server/config"
)

func main() {
	if err := run(); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		return err
	}

	app.Run(ctx)
	return nil
}
