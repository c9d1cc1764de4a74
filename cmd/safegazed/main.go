package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/app"
	"github.com/nvr-ai/safegaze/config"
	"github.com/nvr-ai/safegaze/logger"
)

func main() {
	var (
		configPath string
		envFile    string
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&envFile, "env", ".env", "Path to an optional .env file")
	flag.Parse()

	if err := run(configPath, envFile); err != nil {
		fmt.Fprintf(os.Stderr, "safegazed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Log()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	log.Info("models ready", zap.Any("loaded", a.Engine.Loaded()))

	srv, err := a.Server()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
