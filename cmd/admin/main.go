package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/securecloud/internal/admin"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server"
	"github.com/dmitrijs2005/securecloud/internal/server/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, server.ParseLevel(cfg.LogLevel))

	err := admin.NewRunner(cfg, os.Stdin, os.Stdout, logger).Run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
