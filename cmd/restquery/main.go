package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/cosmos-rest/internal/app"
	"github.com/samvad-hq/cosmos-rest/internal/config"
	"github.com/samvad-hq/cosmos-rest/internal/logger"
	"github.com/samvad-hq/cosmos-rest/pkg/httpclient"
	"github.com/samvad-hq/cosmos-rest/pkg/restclient"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "restquery failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	log.InfoObj("restquery starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := httpclient.NewRestyClient(log.Sugar())
	runner, err := app.NewRunner(cfg, log, os.Stdout, restclient.WithHTTPClient(session))
	if err != nil {
		_ = session.Close()
		log.ErrorObj("failed to initialize runner", "error", err.Error())
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.ErrorObj("runner close failed", "error", err.Error())
		}
	}()

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("runner run: %w", err)
	}

	return nil
}
