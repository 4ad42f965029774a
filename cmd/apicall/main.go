package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-apiclient/internal/app"
	"github.com/samvad-hq/samvad-apiclient/internal/config"
	"github.com/samvad-hq/samvad-apiclient/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, errCallsFailed) {
			fmt.Fprintf(os.Stderr, "apicall failed: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("apicall starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(ctx, cfg, logger.Default())
	if err != nil {
		logger.ErrorObj("failed to initialize runner", "error", err)
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.ErrorObj("runner close failed", "error", err)
		}
	}()

	root := newRootCmd(runner)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
