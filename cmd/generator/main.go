package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/arbwatch/internal/config"
	"github.com/rickgao/arbwatch/internal/generator"
	"github.com/rickgao/arbwatch/internal/logging"
	"github.com/rickgao/arbwatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/generator/price_config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadGenerator(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting price generator",
		"version", version.Version,
		"config", *configPath,
		"assets", cfg.Assets,
		"markets", cfg.Markets,
		"seed", cfg.Seed,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	manager, err := generator.NewManager(*cfg, logger)
	if err != nil {
		logger.Error("failed to initialize prices", "error", err)
		os.Exit(1)
	}
	for _, p := range manager.Pairs() {
		logger.Debug("initial price", "asset", p.Asset, "market", p.Market, "price", p.Price, "spread", p.Spread)
	}

	updatesDone := make(chan error, 1)
	go func() {
		updatesDone <- manager.Run(ctx)
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: generator.NewHandler(manager, logger),
	}

	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	if err := <-updatesDone; err != nil {
		logger.Warn("price updates ended with error", "error", err)
	}

	logger.Info("price generator stopped")
}
