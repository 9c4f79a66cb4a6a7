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

	"github.com/rickgao/arbwatch/internal/alert"
	"github.com/rickgao/arbwatch/internal/api"
	"github.com/rickgao/arbwatch/internal/cache"
	"github.com/rickgao/arbwatch/internal/config"
	"github.com/rickgao/arbwatch/internal/database"
	"github.com/rickgao/arbwatch/internal/detector"
	"github.com/rickgao/arbwatch/internal/httpapi"
	"github.com/rickgao/arbwatch/internal/logging"
	"github.com/rickgao/arbwatch/internal/poller"
	"github.com/rickgao/arbwatch/internal/store"
	"github.com/rickgao/arbwatch/internal/version"
	"github.com/rickgao/arbwatch/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/analyzer.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting analyzer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"assets", cfg.Tracking.Assets,
		"markets", cfg.Tracking.Markets,
		"source", cfg.Source.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Core: store, detector, alert hub
	st := store.New(cfg.Tracking.Assets, store.WithInitialMarket(cfg.Tracking.InitialMarket))
	det := detector.New(st, logger)
	hub := alert.NewHub(alert.DefaultSubscriberBuffer)

	stats := map[string]func() any{
		"hub": func() any { return hub.Stats() },
	}

	// Optional opportunity journal
	var oppWriter *writer.OpportunityWriter
	if cfg.Database.Enabled() {
		pg := cfg.Database.Postgres
		logger.Info("connecting to database",
			"host", pg.Host,
			"port", pg.Port,
			"database", pg.Name,
		)

		pool, err := database.Connect(ctx, pg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := writer.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}

		oppWriter = writer.NewOpportunityWriter(writer.WriterConfig{
			BatchSize:     cfg.Writer.BatchSize,
			FlushInterval: cfg.Writer.FlushInterval,
		}, hub.Subscribe(), pool, logger)
		if err := oppWriter.Start(ctx); err != nil {
			logger.Error("failed to start writer", "error", err)
			os.Exit(1)
		}
		stats["writer"] = func() any { return oppWriter.Stats() }
		logger.Info("opportunity journal enabled")
	}

	// Optional Redis mirror
	var pollerOpts []poller.Option
	pollerOpts = append(pollerOpts, poller.WithOpportunitySink(hub))
	if cfg.Redis.Enabled() {
		mirror, err := cache.NewMirror(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()

		go mirror.Run(ctx, hub.Subscribe())
		pollerOpts = append(pollerOpts, poller.WithRecordSink(mirror))
		stats["redis"] = func() any { return mirror.Stats() }
		logger.Info("redis mirror enabled", "addr", cfg.Redis.Addr)
	}

	// Price source
	client := api.NewClient(
		cfg.Source.URL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Source.Timeout),
		api.WithRetries(cfg.Source.MaxRetries, cfg.Poller.RetryBackoff),
	)
	source := api.NewSource(client, cfg.Source.Timeout, logger)

	// Polling driver
	p := poller.New(poller.Config{
		Interval:     cfg.Poller.Interval,
		RetryBackoff: cfg.Poller.RetryBackoff,
		MergeTimeout: cfg.Poller.MergeTimeout,
		MaxInFlight:  cfg.Poller.MaxInFlight,
	}, poller.Pairs(cfg.Tracking.Assets, cfg.Tracking.Markets), source, det, st, logger, pollerOpts...)
	stats["poller"] = func() any { return p.Stats() }

	// HTTP API
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: httpapi.NewRouter(httpapi.Deps{
			Store:   st,
			Stats:   stats,
			Feed:    alert.NewFeed(hub, logger),
			Version: version.Version,
		}, logger),
	}

	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	logger.Info("analyzer running",
		"pairs", len(cfg.Tracking.Assets)*len(cfg.Tracking.Markets),
		"api_url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop timed out", "error", err)
	}

	// Closing the hub ends feed connections and the writer's input.
	hub.Close()
	server.Shutdown(shutdownCtx)

	if oppWriter != nil {
		oppWriter.Stop(shutdownCtx)
	}

	logger.Info("analyzer stopped", "stats", p.Stats())
}
